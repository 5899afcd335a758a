package control

import "strconv"

// Region identifies one named part of the rendered control.
type Region string

const (
	RegionErrorPanel Region = "error-div"
	RegionWidget     Region = "dropin-container"
	RegionProcessing Region = "processing"
	RegionSubmit     Region = "submit-button"
	RegionSuccess    Region = "success"
)

// Regions lists every region in document order.
var Regions = []Region{RegionErrorPanel, RegionWidget, RegionProcessing, RegionSubmit, RegionSuccess}

// RegionState is the desired presentation of a region.
type RegionState struct {
	ID      Region `json:"id"`
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
}

// StyleVar is a global CSS custom property.
type StyleVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// View is everything a surface needs to present the control.
type View struct {
	Status       Status        `json:"status"`
	Regions      []RegionState `json:"regions"`
	ErrorMessage string        `json:"errorMessage"`
	Styles       []StyleVar    `json:"styles"`
}

// Region returns the state of id, or a hidden state if absent.
func (v View) Region(id Region) RegionState {
	for _, r := range v.Regions {
		if r.ID == id {
			return r
		}
	}
	return RegionState{ID: id}
}

// RenderInput is the subset of control state that affects presentation.
type RenderInput struct {
	Status          Status
	ErrorMessage    string
	SubmitAttached  bool
	Requestable     bool
	Submitting      bool
	DefaultFontSize float64
	ButtonFontSize  float64
}

// Render maps control state to region visibility. It has no side effects.
func Render(in RenderInput) View {
	var errorPanel, widget, processing, submit, success bool

	switch in.Status {
	case StatusUninitialised, StatusError:
		errorPanel = true
	case StatusNew:
		widget = true
		submit = in.SubmitAttached
		// Payment-method failures leave the widget live and only show the label.
		errorPanel = in.ErrorMessage != ""
	case StatusProcessing:
		processing = true
	case StatusCompleted:
		success = true
	}

	submitEnabled := submit && in.Requestable && !in.Submitting && in.Status != StatusProcessing

	return View{
		Status: in.Status,
		Regions: []RegionState{
			{ID: RegionErrorPanel, Visible: errorPanel, Enabled: errorPanel},
			{ID: RegionWidget, Visible: widget, Enabled: widget},
			{ID: RegionProcessing, Visible: processing, Enabled: processing},
			{ID: RegionSubmit, Visible: submit, Enabled: submitEnabled},
			{ID: RegionSuccess, Visible: success, Enabled: success},
		},
		ErrorMessage: in.ErrorMessage,
		Styles: []StyleVar{
			{Name: "--default-font-size", Value: formatPt(fontOrDefault(in.DefaultFontSize, DefaultFontSize))},
			{Name: "--button-font-size", Value: formatPt(fontOrDefault(in.ButtonFontSize, DefaultButtonFontSize))},
		},
	}
}

func fontOrDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func formatPt(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "pt"
}
