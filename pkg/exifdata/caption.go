package exifdata

import "strings"

// Labels are the caption line titles and the seconds unit for long exposures
type Labels struct {
	Date        string
	Camera      string
	Lens        string
	Shutter     string
	Aperture    string
	FocalLength string
	ISO         string
	Tags        string
	Seconds     string
}

// RussianLabels is the default label set
var RussianLabels = Labels{
	Date:        "Дата",
	Camera:      "Камера",
	Lens:        "Объектив",
	Shutter:     "Выдержка",
	Aperture:    "Диафрагма",
	FocalLength: "Фокусное расстояние",
	ISO:         "ISO",
	Tags:        "Теги",
	Seconds:     "сек",
}

var EnglishLabels = Labels{
	Date:        "Date",
	Camera:      "Camera",
	Lens:        "Lens",
	Shutter:     "Shutter",
	Aperture:    "Aperture",
	FocalLength: "Focal length",
	ISO:         "ISO",
	Tags:        "Tags",
	Seconds:     "s",
}

// LabelsFor returns the label set for a language code, defaulting to Russian
func LabelsFor(language string) Labels {
	if strings.EqualFold(language, "en") {
		return EnglishLabels
	}
	return RussianLabels
}

type line struct {
	label string
	value string
	ok    bool
}

func field(label string, render func() (string, bool)) line {
	v, ok := render()
	return line{label, v, ok}
}

// Caption renders the present fields of rec as "Label: value" lines in a
// fixed order. A nil record has no caption at all and reports false; a
// record without any renderable field reports an empty caption and true.
func Caption(rec *Record, labels Labels) (string, bool) {
	if rec == nil {
		return "", false
	}

	shutter, shutterOK := rec.Shutter(labels.Seconds)
	fields := []line{
		field(labels.Date, rec.Date),
		field(labels.Camera, rec.Camera),
		field(labels.Lens, rec.Lens),
		{labels.Shutter, shutter, shutterOK},
		field(labels.Aperture, rec.FNumber),
		field(labels.FocalLength, rec.Focal),
		field(labels.ISO, rec.ISOValue),
		field(labels.Tags, rec.Tags),
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.ok {
			lines = append(lines, f.label+": "+f.value)
		}
	}
	return strings.Join(lines, "\n"), true
}

// ComposeCaption joins the metadata block and the fixed suffix with a blank
// line. Absent or empty parts are left out.
func ComposeCaption(meta string, hasMeta bool, suffix string) string {
	var parts []string
	if hasMeta && meta != "" {
		parts = append(parts, meta)
	}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, "\n\n")
}
