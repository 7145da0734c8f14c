package synthesis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/huhu-tiger/reportgen/models"
)

// markdownRef matches both inline links and images; the leading capture
// distinguishes ![alt](src) from [text](url).
var markdownRef = regexp.MustCompile(`(!?)\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// Verify checks a report against the corpus: the report must be non-empty,
// every link target must be a corpus news url and every image source a corpus
// image. Verification is post-hoc, so a streamed report may fail here after
// its deltas were already delivered.
func Verify(report string, corpus *models.RunCorpus) error {
	if strings.TrimSpace(report) == "" {
		return fmt.Errorf("model returned an empty report")
	}
	for _, m := range markdownRef.FindAllStringSubmatch(report, -1) {
		isImage, target := m[1] == "!", m[2]
		if isImage {
			if !corpus.HasImageSrc(target) {
				return fmt.Errorf("report embeds image %q that is not in the corpus", target)
			}
			continue
		}
		if !corpus.HasNewsURL(target) {
			return fmt.Errorf("report cites %q which is not in the corpus", target)
		}
	}
	return nil
}
