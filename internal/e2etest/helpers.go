package e2etest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// findLabelled finds the element matching tags that belongs to the label containing labelText. The label either
// points at the element with its for attribute or wraps it.
func findLabelled(form *goquery.Selection, labelText string, tags ...string) (*goquery.Selection, error) {
	label := form.Find(fmt.Sprintf("label:contains(%q)", labelText))
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}
	var field *goquery.Selection
	if id, ok := label.Attr("for"); ok {
		selectors := make([]string, len(tags))
		for i, tag := range tags {
			selectors[i] = tag + "#" + id
		}
		field = form.Find(strings.Join(selectors, ","))
	} else {
		field = label.Find(strings.Join(tags, ","))
	}
	if field.Length() == 0 {
		return nil, fmt.Errorf("%s not found for label: %s", strings.Join(tags, "/"), labelText)
	}
	return field.First(), nil
}

// FindInputForLabel finds the input or textarea associated with a label in the given form.
func FindInputForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	return findLabelled(form, labelText, "input", "textarea")
}

// FindSelectForLabel finds the select element associated with a label in the given form.
func FindSelectForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	return findLabelled(form, labelText, "select")
}

// IsMultipleSelect checks if a select element has the multiple attribute.
func IsMultipleSelect(field *goquery.Selection) bool {
	_, exists := field.Attr("multiple")
	return goquery.NodeName(field) == "select" && exists
}

// FindForm finds a form in the doc identified with action formActionURLPath and returns the form selection.
func FindForm(doc *goquery.Document, formActionURLPath string) (*goquery.Selection, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", formActionURLPath))
	if form.Length() == 0 {
		return nil, fmt.Errorf("form not found: %s", formActionURLPath)
	}
	return form, nil
}
