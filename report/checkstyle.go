package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"sc2sx/diag"
	"sc2sx/misc"
)

const checkstyleVersion = "4.3"

// Checkstyle writes diagnostics as checkstyle XML, one file element per
// lowered file including clean ones.
func Checkstyle(w io.Writer, r *Run) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}

	root := doc.CreateElement("checkstyle")
	root.CreateAttr("version", checkstyleVersion)
	if r.ID != "" {
		root.CreateComment(" run " + r.ID + " ")
	}

	for _, f := range r.Files {
		fe := root.CreateElement("file")
		fe.CreateAttr("name", f.Path)
		for _, d := range f.Diagnostics().All() {
			fe.AddChild(diagnosticElement(d))
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write checkstyle report: %w", err)
	}
	return nil
}

func diagnosticElement(d diag.Diagnostic) *etree.Element {
	e := etree.NewElement("error")
	if d.Loc.Line > 0 {
		e.CreateAttr("line", strconv.Itoa(d.Loc.Line))
	}
	if d.Loc.Column > 0 {
		e.CreateAttr("column", strconv.Itoa(d.Loc.Column))
	}
	e.CreateAttr("severity", d.Severity.String())
	e.CreateAttr("message", message(d))
	e.CreateAttr("source", misc.GetAppName()+"."+d.Kind.String())
	return e
}

func message(d diag.Diagnostic) string {
	msg := d.Kind.String()
	if d.Shape != "" {
		msg += "(" + d.Shape + ")"
	}
	if d.Component != "" {
		msg += " in " + d.Component
	}
	if d.Context != "" {
		msg += ": " + d.Context
	}
	return msg
}
