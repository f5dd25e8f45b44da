package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/fyrsmithlabs/crewd/internal/project"
)

// ErrUnclassifiable is returned when a request matches neither track. The
// caller records ROUTING_FAILED rather than guessing.
var ErrUnclassifiable = errors.New("request matches no known track")

// Classifier decides which crew a request belongs to and drafts the
// structured spec downstream stages read.
type Classifier interface {
	Classify(ctx context.Context, request string) (project.Classification, project.Spec, error)
}

var dsKeywords = []string{
	"data", "dataset", "model", "predict", "forecast", "analysis",
	"analytics", "machine learning", "classification", "clustering",
	"statistics", "churn", "regression", "segmentation",
}

var devKeywords = []string{
	"app", "application", "api", "website", "web", "dashboard", "service",
	"frontend", "backend", "database", "deploy", "build", "ui", "platform",
	"portal", "cli", "tool",
}

// KeywordClassifier is the deterministic fallback classifier: keyword hits
// on both tracks mean JOINT, one track means that track, none is a routing
// failure. It exists so the pipeline works with no model in the loop; a
// model-backed Classifier slots in through the same interface.
type KeywordClassifier struct{}

// Classify implements Classifier.
func (KeywordClassifier) Classify(_ context.Context, request string) (project.Classification, project.Spec, error) {
	lower := strings.ToLower(request)

	ds := matchesAny(lower, dsKeywords)
	dev := matchesAny(lower, devKeywords)

	var classification project.Classification
	switch {
	case ds && dev:
		classification = project.ClassificationJoint
	case ds:
		classification = project.ClassificationDS
	case dev:
		classification = project.ClassificationDev
	default:
		return "", project.Spec{}, ErrUnclassifiable
	}

	spec := project.Spec{
		Title:               title(request),
		Description:         request,
		EstimatedComplexity: "unknown",
		DataRequired:        ds,
		PrimaryCrew:         classification,
	}
	if classification == project.ClassificationJoint {
		// Analysis output feeds the build by default; the reverse and the
		// bidirectional case come from an explicit spec.
		spec.HandoffDirection = project.DirectionDSToDev
	}

	return classification, spec, nil
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func title(request string) string {
	const maxTitle = 60
	t := strings.TrimSpace(request)
	if i := strings.IndexAny(t, ".\n"); i > 0 {
		t = t[:i]
	}
	if len(t) > maxTitle {
		t = strings.TrimSpace(t[:maxTitle])
	}
	return t
}
