package cv

// Template identifies a reference image on disk together with its matching
// parameters.
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Region    *Region
	Scale     float64
}

// WithThreshold sets the matching threshold
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}

// InRegion sets the search region for the template
func (t Template) InRegion(x1, y1, x2, y2 int) Template {
	region := Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
	t.Region = &region
	return t
}
