package app

import (
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/densityfit/scoring"
)

// modeForm holds the entries of one scoring tab. Entries a mode does not use
// stay nil.
type modeForm struct {
	resolution  *widget.Entry
	resolution2 *widget.Entry
	sigma       *widget.Entry
	window      *widget.Entry
	contour1    *widget.Entry
	contour2    *widget.Entry
	rigid       *widget.Entry

	form *widget.Form
}

func newModeForm(mode scoring.Mode, f scoring.Fields, browse func(*widget.Entry)) *modeForm {
	m := &modeForm{form: widget.NewForm()}
	switch mode {
	case scoring.ModeSCCC:
		m.resolution = m.add("Resolution", f.Resolution)
		m.sigma = m.add("Sigma", f.Sigma)
		m.rigid = m.addFile("Rigid-body file", f.RigidBodyFile, browse)
	case scoring.ModeSMOC:
		m.resolution = m.add("Resolution", f.Resolution)
		m.sigma = m.add("Sigma", f.Sigma)
		m.window = m.add("Window", f.Window)
		m.rigid = m.addFile("Rigid-body file (optional)", f.RigidBodyFile, browse)
	case scoring.ModeNMI:
		m.resolution = m.add("Resolution 1", f.Resolution)
		m.resolution2 = m.add("Resolution 2", f.Resolution2)
		m.contour1 = m.add("Contour 1", f.Contour1)
		m.contour2 = m.add("Contour 2", f.Contour2)
	}
	return m
}

func (m *modeForm) add(label, text string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	m.form.Append(label, e)
	return e
}

func (m *modeForm) addFile(label, text string, browse func(*widget.Entry)) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	e.SetPlaceHolder("path to rigid-body file")
	btn := widget.NewButtonWithIcon("Browse...", theme.FolderOpenIcon(), func() {
		if browse != nil {
			browse(e)
		}
	})
	m.form.Append(label, container.NewBorder(nil, nil, nil, btn, e))
	return e
}

func (m *modeForm) fields() scoring.Fields {
	text := func(e *widget.Entry) string {
		if e == nil {
			return ""
		}
		return e.Text
	}
	return scoring.Fields{
		Resolution:    text(m.resolution),
		Resolution2:   text(m.resolution2),
		Sigma:         text(m.sigma),
		Window:        text(m.window),
		Contour1:      text(m.contour1),
		Contour2:      text(m.contour2),
		RigidBodyFile: text(m.rigid),
	}
}
