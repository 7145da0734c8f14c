// Package synthesis writes the final Markdown report from the gathered
// corpus, holding the model to the corpus for every citation and image.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/huhu-tiger/reportgen/internal/llm"
	"github.com/huhu-tiger/reportgen/models"
)

// Error reports that the model could not produce a verifiable report after
// the retry.
type Error struct {
	Topic string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesizing report for %q: %v", e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const systemPrompt = `You are a research report writer. You receive a topic and a JSON corpus of
news results and validated images. Write a Markdown report in the language of
the topic with this shape:

- one H1 title
- a short introduction
- at least two thematic sections with H2 headings
- a final "Key Takeaways" section with 3 to 5 bullet points

Every factual claim must cite a corpus news item inline as [title](url), using
the url exactly as it appears in the corpus. Illustrate sections with corpus
images as ![description](image_src), again copying image_src verbatim. Never
invent a url, an image, or a fact that is not supported by the corpus. Output
only the Markdown report.`

const retryReminder = `Your previous report referenced a url that is not in the corpus. Rewrite the
report from scratch. Copy every link target and image source character for
character from the corpus JSON; cite nothing else.`

// Synthesizer performs the report-writing LLM call against the writer
// endpoint.
type Synthesizer struct {
	client   *llm.Client
	endpoint llm.ModelEndpoint
	logger   *log.Logger
}

// New resolves the writer endpoint from the registry.
func New(reg *llm.Registry, client *llm.Client, logger *log.Logger) (*Synthesizer, error) {
	ep, err := reg.Get("writer")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[WRITER] ", log.LstdFlags)
	}
	return &Synthesizer{client: client, endpoint: ep, logger: logger}, nil
}

// Write produces the report for topic from corpus, streaming deltas of the
// first attempt to onDelta. The streamed text is provisional: if it fails
// citation verification the model gets one stricter non-streamed retry, and
// only the returned report is authoritative. An empty corpus short-circuits
// to a fixed report with no citations.
func (s *Synthesizer) Write(ctx context.Context, topic string, corpus *models.RunCorpus, onDelta func(string)) (string, error) {
	if corpus == nil || corpus.Empty() {
		report := emptyCorpusReport(topic)
		if onDelta != nil {
			onDelta(report)
		}
		return report, nil
	}

	corpusJSON, err := json.Marshal(corpus)
	if err != nil {
		return "", &Error{Topic: topic, Err: err}
	}
	user := fmt.Sprintf("Topic: %s\n\nCorpus:\n%s", topic, corpusJSON)

	report, err := s.client.Stream(ctx, s.endpoint, systemPrompt, user, onDelta)
	if err != nil {
		return "", &Error{Topic: topic, Err: err}
	}
	verr := Verify(report, corpus)
	if verr == nil {
		return report, nil
	}
	s.logger.Printf("first attempt failed verification, retrying: %v", verr)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	report, err = s.client.Complete(ctx, s.endpoint, systemPrompt+"\n\n"+retryReminder, user)
	if err != nil {
		return "", &Error{Topic: topic, Err: err}
	}
	if verr := Verify(report, corpus); verr != nil {
		return "", &Error{Topic: topic, Err: verr}
	}
	return report, nil
}

func emptyCorpusReport(topic string) string {
	topic = strings.TrimSpace(topic)
	return fmt.Sprintf(`# %s

No sources were found for this topic. Try a broader or differently phrased
topic, or check that the search providers are configured and reachable.
`, topic)
}
