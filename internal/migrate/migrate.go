// Package migrate copies imgur-hosted test screenshots into S3. The
// job is resumable: a JSON checkpoint records every processed and
// failed URL, and a rerun picks up where the last one stopped.
package migrate

import "errors"

// S3 key prefixes for the two copies of every screenshot.
const (
	// PrefixImgur keys the raw copy by imgur ID.
	PrefixImgur = "screenshotsImgur/"

	// PrefixClean keys a second copy by test name and variation value,
	// so reports can reference screenshots without the imgur ID.
	PrefixClean = "screenshotsClean/"
)

// ErrNotImage marks downloads whose content is not an image, which is
// what imgur serves for deleted pictures.
var ErrNotImage = errors.New("response is not an image")

// Entry is one screenshot reference found in a screenshots.csv file.
type Entry struct {
	Test  string
	Value string
	URL   string
}
