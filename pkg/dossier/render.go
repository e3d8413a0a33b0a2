package dossier

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// stampDescription centres bold text near the bottom edge of the page.
const stampDescription = "fontname:Helvetica-Bold, points:24, position:bc, offset:0 40, scalefactor:1 abs, rotation:0, fillcolor:#1f1509, opacity:1"

// formFill mirrors the JSON layout pdfcpu reads form values from.
type formFill struct {
	Forms []formValues `json:"forms"`
}

type formValues struct {
	TextFields []textField `json:"textfield"`
}

type textField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PDFRenderer fills the name field with pdfcpu, stamping page one instead
// when the brochure has no such field.
type PDFRenderer struct {
	FieldName string
}

func NewPDFRenderer() *PDFRenderer {
	api.DisableConfigDir()
	return &PDFRenderer{FieldName: FieldName}
}

// pdfcpu commands write into their configuration, so every call gets its own.
func (r *PDFRenderer) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (r *PDFRenderer) Render(template []byte, name, stamp string) ([]byte, Outcome, error) {
	if r.hasField(template) {
		data, err := r.fill(template, name)
		if err == nil {
			return data, FieldFilled, nil
		}
	}

	data, err := r.stamp(template, stamp)
	if err != nil {
		return nil, "", err
	}
	return data, TextDrawn, nil
}

func (r *PDFRenderer) hasField(template []byte) bool {
	fields, err := api.FormFields(bytes.NewReader(template), r.conf())
	if err != nil {
		return false
	}

	for _, f := range fields {
		if f.Name == r.FieldName {
			return true
		}
	}
	return false
}

func (r *PDFRenderer) fill(template []byte, name string) ([]byte, error) {
	body, err := json.Marshal(formFill{Forms: []formValues{{
		TextFields: []textField{{Name: r.FieldName, Value: name}},
	}}})
	if err != nil {
		return nil, fmt.Errorf("error encoding form values: %w", err)
	}

	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(template), bytes.NewReader(body), &out, r.conf()); err != nil {
		return nil, fmt.Errorf("error filling %s: %w", r.FieldName, err)
	}
	return out.Bytes(), nil
}

func (r *PDFRenderer) stamp(template []byte, text string) ([]byte, error) {
	wm, err := api.TextWatermark(text, stampDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("error building stamp: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(template), &out, []string{"1"}, wm, r.conf()); err != nil {
		return nil, fmt.Errorf("error stamping first page: %w", err)
	}
	return out.Bytes(), nil
}
