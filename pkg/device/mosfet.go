package device

import (
	"fmt"
	"math"

	"github.com/Mauricio-xx/ihp-gmid-kit/internal/consts"
)

// Mosfet Level-1 model evaluated at a single bias point. Square-law drain
// current with channel length modulation and body effect, Meyer capacitance
// split. Conductances are reported as positive magnitudes for both
// polarities; drain current and threshold keep the physical sign.
type Mosfet struct {
	Name string
	Type string // "NMOS" or "PMOS"

	// DC parameters
	VTO    float64 // Threshold voltage (V)
	KP     float64 // Transconductance parameter (A/V²)
	GAMMA  float64 // Body effect parameter (V^0.5)
	PHI    float64 // Surface potential (V)
	LAMBDA float64 // Channel length modulation at LREF (1/V)
	LREF   float64 // Reference length for LAMBDA scaling (m)
	RD     float64 // Series drain resistance (Ω)
	RS     float64 // Series source resistance (Ω)

	// Capacitance parameters
	TOX  float64 // Oxide thickness (m)
	CGSO float64 // Gate-Source overlap capacitance per unit width (F/m)
	CGDO float64 // Gate-Drain overlap capacitance per unit width (F/m)
	CGBO float64 // Gate-Bulk overlap capacitance per unit length (F/m)
}

// Operation regions
const (
	CUTOFF     = 0
	LINEAR     = 1
	SATURATION = 2
)

// Conductance floor for numerical stability.
const gmin = 1e-12

// Bias is one (geometry, terminal voltage) point. Voltages are physically
// signed: negative Vgs/Vds for PMOS, reverse-bias Vbs opposite to Vgs.
type Bias struct {
	L   float64 // Channel length (m)
	W   float64 // Channel width (m)
	Vgs float64
	Vds float64
	Vbs float64
}

// OpPoint holds the small-signal quantities at one bias point.
type OpPoint struct {
	ID    float64 // Drain current (A), signed
	Gm    float64 // Transconductance (S)
	Gds   float64 // Output conductance (S)
	Gmbs  float64 // Body-effect transconductance (S)
	Vth   float64 // Threshold voltage (V), signed
	Vdsat float64 // Saturation voltage (V), signed
	Cgs   float64 // Gate-Source capacitance (F)
	Cgd   float64 // Gate-Drain capacitance (F)
	Cgb   float64 // Gate-Bulk capacitance (F)
	Cgg   float64 // Total gate capacitance (F)

	Region int
}

func NewMosfet(name, mosType string) *Mosfet {
	m := &Mosfet{Name: name, Type: "NMOS"}
	if mosType == "PMOS" || mosType == "pmos" {
		m.Type = "PMOS"
	}
	m.setDefaultParameters()
	return m
}

func (m *Mosfet) setDefaultParameters() {
	m.VTO = 0.45
	m.KP = 3.5e-4
	m.GAMMA = 0.35
	m.PHI = 0.7
	m.LAMBDA = 0.06
	m.LREF = 1e-6
	m.RD = 1.0
	m.RS = 1.0

	m.TOX = 3e-9
	m.CGSO = 3e-10
	m.CGDO = 3e-10
	m.CGBO = 1e-10

	if m.Type == "PMOS" {
		// Hole mobility penalty
		m.KP = 1.2e-4
	}
}

// SetParameters overrides model parameters by lowercase SPICE name.
func (m *Mosfet) SetParameters(params map[string]float64) error {
	paramsSet := map[string]*float64{
		"vto":    &m.VTO,
		"kp":     &m.KP,
		"gamma":  &m.GAMMA,
		"phi":    &m.PHI,
		"lambda": &m.LAMBDA,
		"lref":   &m.LREF,
		"rd":     &m.RD,
		"rs":     &m.RS,
		"tox":    &m.TOX,
		"cgso":   &m.CGSO,
		"cgdo":   &m.CGDO,
		"cgbo":   &m.CGBO,
	}

	for key, value := range params {
		param, ok := paramsSet[key]
		if !ok {
			return fmt.Errorf("mosfet %s: unknown parameter %q", m.Name, key)
		}
		*param = value
	}
	return nil
}

// Threshold voltage with body effect, in the sign-normalized frame.
func (m *Mosfet) calculateVth(vbs float64) float64 {
	if m.GAMMA > 0 {
		return m.VTO + m.GAMMA*(math.Sqrt(math.Max(0, m.PHI-vbs))-math.Sqrt(m.PHI))
	}
	return m.VTO
}

// Channel length modulation weakens with longer channels.
func (m *Mosfet) lambdaEff(l float64) float64 {
	if l <= 0 {
		return m.LAMBDA
	}
	return m.LAMBDA * m.LREF / l
}

// Evaluate computes the operating point at one bias. PMOS bias voltages are
// flipped into the NMOS frame, evaluated, and sign-restored on the way out.
func (m *Mosfet) Evaluate(b Bias) OpPoint {
	sign := 1.0
	if m.Type == "PMOS" {
		sign = -1.0
	}

	vgs := sign * b.Vgs
	vds := sign * b.Vds
	vbs := sign * b.Vbs

	vth := m.calculateVth(vbs)
	vgst := vgs - vth
	lambda := m.lambdaEff(b.L)
	beta := m.KP * b.W / b.L

	op := OpPoint{
		Vth:    sign * vth,
		Gm:     gmin,
		Gds:    gmin,
		Gmbs:   gmin,
		Region: CUTOFF,
	}

	if vgst > 0 {
		op.Vdsat = sign * vgst
		if vds < vgst {
			op.Region = LINEAR
			id := beta * (vgst*vds - 0.5*vds*vds) * (1.0 + lambda*vds)
			op.ID = sign * id
			op.Gm = beta * vds * (1.0 + lambda*vds)
			op.Gds = beta*(vgst-vds)*(1.0+lambda*vds) + beta*lambda*(vgst*vds-0.5*vds*vds)
		} else {
			op.Region = SATURATION
			id := 0.5 * beta * vgst * vgst * (1.0 + lambda*vds)
			op.ID = sign * id
			op.Gm = beta * vgst * (1.0 + lambda*vds)
			op.Gds = 0.5 * beta * vgst * vgst * lambda
		}
		op.Gm = math.Max(op.Gm, gmin)
		op.Gds = math.Max(op.Gds, gmin)

		if m.GAMMA > 0 && m.PHI > 0 && vbs < 0 {
			op.Gmbs = op.Gm * m.GAMMA / (2.0 * math.Sqrt(m.PHI-vbs))
		}
	}

	m.calculateCapacitances(&op, b)
	return op
}

// Meyer capacitance split by operation region.
func (m *Mosfet) calculateCapacitances(op *OpPoint, b Bias) {
	// F/cm² from EPSOX (F/cm) over TOX (m → cm), then to F/m²
	coxArea := consts.EPSOX / (m.TOX * 100) * 1e4
	cgate := coxArea * b.W * b.L

	cgso := m.CGSO * b.W
	cgdo := m.CGDO * b.W
	cgbo := m.CGBO * b.L

	switch op.Region {
	case CUTOFF:
		op.Cgb = 2.0*cgate/3.0 + cgbo
		op.Cgs = cgso
		op.Cgd = cgdo
	case LINEAR:
		op.Cgs = cgate/2.0 + cgso
		op.Cgd = cgate/2.0 + cgdo
		op.Cgb = cgbo
	case SATURATION:
		op.Cgs = 2.0*cgate/3.0 + cgso
		op.Cgd = cgdo
		op.Cgb = cgbo + cgate/3.0
	}

	op.Cgg = op.Cgs + op.Cgd + op.Cgb
}
