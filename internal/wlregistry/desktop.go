package wlregistry

import "github.com/wayvnc-go/wayvnc/internal/observer"

// desktopOutput is a non-owning edge from Desktop to one Output: the
// owning direction is wayland -> output, desktop -> desktop_output,
// desktop_output -> output.
type desktopOutput struct {
	output        *Output
	geometryObs   *observer.Observer
	powerObs      *observer.Observer
}

// Desktop is the fan-out image source that aggregates every output into
// a single logical source: a union of every output's power state and
// geometry.
type Desktop struct {
	edges []*desktopOutput

	power          Power
	geometryChange observer.Observable
	powerChange    observer.Observable
}

// NewDesktop creates an empty desktop aggregator.
func NewDesktop() *Desktop {
	return &Desktop{power: PowerUnknown}
}

// AddOutput attaches an observer to o's geometry_change and power_change
//, and recomputes the aggregate immediately.
func (d *Desktop) AddOutput(o *Output) {
	edge := &desktopOutput{output: o}
	edge.geometryObs = observer.New(o.GeometryChange(), func(any) {
		d.geometryChange.Notify(d)
	})
	edge.powerObs = observer.New(o.PowerChange(), func(any) {
		d.recomputePower()
	})
	d.edges = append(d.edges, edge)
	d.recomputePower()
	d.geometryChange.Notify(d)
}

// RemoveOutput detaches o from the aggregator.
func (d *Desktop) RemoveOutput(o *Output) {
	for i, edge := range d.edges {
		if edge.output == o {
			edge.geometryObs.Deinit()
			edge.powerObs.Deinit()
			d.edges = append(d.edges[:i], d.edges[i+1:]...)
			break
		}
	}
	d.recomputePower()
	d.geometryChange.Notify(d)
}

// recomputePower walks every output and compares a tally (all-on,
// all-off, mixed) against the cached state, emitting at most one
// desktop-level notification per transition.
func (d *Desktop) recomputePower() {
	if len(d.edges) == 0 {
		d.setPower(PowerUnknown)
		return
	}

	allOn, allOff := true, true
	for _, edge := range d.edges {
		switch edge.output.PowerState() {
		case PowerOn:
			allOff = false
		case PowerOff:
			allOn = false
		default:
			allOn, allOff = false, false
		}
	}

	switch {
	case allOn:
		d.setPower(PowerOn)
	case allOff:
		d.setPower(PowerOff)
	default:
		d.setPower(PowerUnknown)
	}
}

func (d *Desktop) setPower(p Power) {
	if d.power == p {
		return
	}
	d.power = p
	d.powerChange.Notify(d)
}

// Dimensions reports width = max(x+width), height = max(y+height) across
// outputs.
func (d *Desktop) Dimensions() (int32, int32) {
	var w, h int32
	for _, edge := range d.edges {
		o := edge.output
		if x := o.X + o.Width; x > w {
			w = x
		}
		if y := o.Y + o.Height; y > h {
			h = y
		}
	}
	return w, h
}

func (d *Desktop) Transform() Transform { return TransformNormal }
func (d *Desktop) PowerState() Power    { return d.power }

// AcquirePowerOn/ReleasePowerOn fan out to every constituent output.
func (d *Desktop) AcquirePowerOn() int {
	if len(d.edges) == 0 {
		return -1
	}
	result := 1
	for _, edge := range d.edges {
		if r := edge.output.AcquirePowerOn(); r < result {
			result = r
		}
	}
	return result
}

func (d *Desktop) ReleasePowerOn() {
	for _, edge := range d.edges {
		edge.output.ReleasePowerOn()
	}
}

func (d *Desktop) Describe() string { return "desktop" }

func (d *Desktop) GeometryChange() *observer.Observable { return &d.geometryChange }
func (d *Desktop) PowerChange() *observer.Observable    { return &d.powerChange }

// Outputs returns the outputs currently aggregated, in attach order.
func (d *Desktop) Outputs() []*Output {
	out := make([]*Output, len(d.edges))
	for i, edge := range d.edges {
		out[i] = edge.output
	}
	return out
}
