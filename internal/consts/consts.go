package consts

const (
	CHARGE    = 1.6021918e-19 // Elementary charge (C)
	BOLTZMANN = 1.3806226e-23 // Boltzmann constant (J/K)
	KELVIN    = 273.15        // Kelvin temperature (K)
	EPS0      = 8.85e-14      // Vacuum permittivity (F/cm)
	EPSOX     = 3.9 * EPS0    // Silicon dioxide permittivity (F/cm)
)
