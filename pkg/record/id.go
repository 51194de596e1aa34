package record

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// IDPrefix starts every record id.
	IDPrefix = "img_"

	MetaSuffix        = "_metadata.json"
	TextSuffix        = "_text.txt"
	DescriptionSuffix = "_description.txt"

	// ImageExt is the extension given to images created by this service.
	ImageExt = ".png"

	tokenLen = 13
)

// NewID allocates a fresh record id of the form img_<unix>_<token>. The token
// is 13 lowercase hex characters drawn from a random UUID, so ids minted in the
// same second stay distinct.
func NewID(now time.Time) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IDPrefix + strconv.FormatInt(now.Unix(), 10) + "_" + token[:tokenLen]
}

// MetaName returns the metadata document file name for id.
func MetaName(id string) string { return id + MetaSuffix }

// TextName returns the text sidecar file name for id.
func TextName(id string) string { return id + TextSuffix }

// DescriptionName returns the description sidecar file name for id.
func DescriptionName(id string) string { return id + DescriptionSuffix }

// DefaultImageName is the image file name assigned at creation time. Later
// operations must use Metadata.Filename instead.
func DefaultImageName(id string) string { return id + ImageExt }

// IDFromMetaName strips the metadata suffix from a file name. ok is false
// when name is not a metadata document.
func IDFromMetaName(name string) (id string, ok bool) {
	if !strings.HasSuffix(name, MetaSuffix) {
		return "", false
	}
	id = strings.TrimSuffix(name, MetaSuffix)
	return id, id != ""
}
