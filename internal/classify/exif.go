package classify

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "heic": true, "heif": true, "tiff": true, "tif": true,
}

// EXIFData is the subset of EXIF metadata a rule's subcategory_from_exif
// template can reference.
type EXIFData struct {
	Year  string
	Month string
	Day   string
	Make  string
	Model string
}

// extractEXIF decodes the EXIF block of an image file, returning nil
// without error for non-image files, unreadable files, or files with no
// decodable EXIF block — all of these leave subcategory resolution to
// fall back to the rule's static Subcategory.
func extractEXIF(path string) (*EXIFData, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !imageExtensions[ext] {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, nil
	}

	data := &EXIFData{}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		setDateParts(data, tag)
	} else if tag, err := x.Get(exif.DateTime); err == nil {
		setDateParts(data, tag)
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil {
			data.Make = s
		}
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			data.Model = s
		}
	}

	return data, nil
}

// setDateParts fills Year/Month/Day from an EXIF DateTime tag, formatted
// "2006:01:02 15:04:05".
func setDateParts(data *EXIFData, tag *tiff.Tag) {
	s, err := tag.StringVal()
	if err != nil {
		return
	}

	datePart := strings.SplitN(s, " ", 2)[0]

	parts := strings.Split(datePart, ":")
	if len(parts) < 3 {
		return
	}

	data.Year = parts[0]
	data.Month = parts[1]
	data.Day = parts[2]
}

// substituteEXIF fills in a subcategory template using {exif_year},
// {exif_month}, {exif_day}, {exif_make}, {exif_model}.
func substituteEXIF(pattern string, data *EXIFData) string {
	result := pattern
	result = strings.ReplaceAll(result, "{exif_year}", data.Year)
	result = strings.ReplaceAll(result, "{exif_month}", data.Month)
	result = strings.ReplaceAll(result, "{exif_day}", data.Day)
	result = strings.ReplaceAll(result, "{exif_make}", data.Make)
	result = strings.ReplaceAll(result, "{exif_model}", data.Model)

	return result
}
