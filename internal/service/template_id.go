package service

import (
	"path"
	"regexp"
	"strings"

	"prompthub.io/prompthub/internal/filestore"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	allDigits     = regexp.MustCompile(`^\d+$`)
)

// TemplateKey locates a Template Document in the repository tree.
type TemplateKey struct {
	Department string
	AppCode    string
	Stem       string
}

// Dir returns the app code directory holding the document.
func (k TemplateKey) Dir() string {
	return filestore.Join(k.Department, k.AppCode)
}

// Path returns the canonical document path.
func (k TemplateKey) Path() string {
	return filestore.Join(k.Department, k.AppCode, k.Stem+".json")
}

// Link returns the Metadata Entry link for the document.
func (k TemplateKey) Link() string {
	return "/" + k.Path()
}

// FileStem turns a template name into its file name stem.
// Pattern: whitespace runs become a single hyphen ("Risk Check" -> "Risk-Check").
func FileStem(name string) string {
	return whitespaceRun.ReplaceAllString(name, "-")
}

// KeyFor returns the key of the document a template with these fields is
// stored under.
func KeyFor(department, appCode, name string) TemplateKey {
	return TemplateKey{Department: department, AppCode: appCode, Stem: FileStem(name)}
}

// EncodeTemplateID builds the Composite Identifier
// {department}-{appCode}-{stem} for a template.
func EncodeTemplateID(department, appCode, name string) string {
	return department + "-" + appCode + "-" + FileStem(name)
}

// DecodeTemplateID parses a Composite Identifier
// {department}-{appCode}-{stem}[-{timestamp}]. A purely numeric last
// segment is always read as the timestamp, so a stem ending in "-2024"
// cannot be addressed with a composite id.
func DecodeTemplateID(id string) (TemplateKey, error) {
	segments := strings.Split(id, "-")
	if len(segments) < 3 {
		return TemplateKey{}, apperrors.ErrInvalidTemplateID(id)
	}

	stem := segments[2:]
	if allDigits.MatchString(segments[len(segments)-1]) {
		stem = stem[:len(stem)-1]
	}

	key := TemplateKey{
		Department: segments[0],
		AppCode:    segments[1],
		Stem:       strings.Join(stem, "-"),
	}
	if key.Department == "" || key.AppCode == "" || key.Stem == "" {
		return TemplateKey{}, apperrors.ErrInvalidTemplateID(id)
	}
	return key, nil
}

// IsIndexID reports whether id is a numeric Metadata Index id.
func IsIndexID(id string) bool {
	return allDigits.MatchString(id)
}

// keyFromLink parses a Metadata Entry link "/{department}/{appCode}/{file}".
func keyFromLink(link string) (TemplateKey, bool) {
	parts := strings.Split(strings.Trim(link, "/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return TemplateKey{}, false
	}
	return TemplateKey{
		Department: parts[0],
		AppCode:    parts[1],
		Stem:       strings.TrimSuffix(parts[2], path.Ext(parts[2])),
	}, true
}

// sameLink compares two links or paths ignoring the leading slash and case.
func sameLink(a, b string) bool {
	return strings.EqualFold(strings.Trim(a, "/"), strings.Trim(b, "/"))
}
