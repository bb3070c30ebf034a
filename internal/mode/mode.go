// Package mode enforces mode/model compatibility for a corpus (C9): a
// corpus's SystemInfo fixes a mode and a model, and every ingest or
// rebuild must be checked against that fixed point before it is allowed
// to touch the corpus.
package mode

import (
	"fmt"

	"github.com/raglite-go/raglite/internal/ragerr"
	"github.com/raglite-go/raglite/internal/store"
)

// ModelDescriptor is what an embedder reports about itself, the input to
// validation against a corpus's existing (or proposed) SystemInfo.
type ModelDescriptor struct {
	Name          string
	Type          store.ModelType
	Dimensions    int
	SupportsImage bool
}

// Request describes what the caller wants to do: ingest into, or build,
// a corpus with the given mode using the given model.
type Request struct {
	Mode         store.Mode
	Model        ModelDescriptor
	ForceRebuild bool
}

// Result is the outcome of validation: either the request is accepted
// (possibly with warnings) or rejected with a structured error.
type Result struct {
	Warnings []string
}

// Validate checks req against existing, the corpus's current SystemInfo
// (nil for a brand-new corpus), applying rules R1-R4.
//
//   - R1: a text-only model with mode=multimodal is invalid.
//   - R2: a multimodal model with mode=text is valid but warned (the model
//     is capable of more than the corpus uses).
//   - R3: changing model on an existing corpus requires ForceRebuild.
//   - R4: without ForceRebuild, the model's declared dimensions must equal
//     the corpus's existing dimensions (when one exists); otherwise they
//     are accepted as the new corpus's dimensions.
func Validate(req Request, existing *store.SystemInfo) (*Result, error) {
	result := &Result{}

	// R1
	if req.Mode == store.ModeMultimodal && !req.Model.SupportsImage {
		return nil, ragerr.New(ragerr.KindModeMismatch,
			fmt.Sprintf("model %q does not support images; cannot serve multimodal mode", req.Model.Name), nil).
			WithDetail("model", req.Model.Name).
			WithDetail("mode", string(req.Mode)).
			WithResolution(ragerr.Resolution{
				Action:      "choose_model",
				Explanation: "pick a model with SupportsImage=true, or switch the corpus to text mode",
			})
	}

	// R2
	if req.Mode == store.ModeText && req.Model.SupportsImage {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("model %q supports images but the corpus is in text mode; image embedding capability will be unused", req.Model.Name))
	}

	if existing == nil {
		return result, nil
	}

	// R3
	if existing.ModelName != "" && existing.ModelName != req.Model.Name && !req.ForceRebuild {
		return nil, ragerr.New(ragerr.KindModelMismatch,
			fmt.Sprintf("corpus was built with model %q, requested model is %q", existing.ModelName, req.Model.Name), nil).
			WithDetail("existing_model", existing.ModelName).
			WithDetail("requested_model", req.Model.Name).
			WithResolution(ragerr.Rebuild("raglite ingest --force-rebuild"))
	}

	// R4
	if req.Model.Dimensions != existing.ModelDimensions {
		if !req.ForceRebuild {
			return nil, ragerr.New(ragerr.KindDimensionMismatch,
				fmt.Sprintf("model %q reports %d dimensions, corpus expects %d", req.Model.Name, req.Model.Dimensions, existing.ModelDimensions), nil).
				WithDetail("model_dimensions", fmt.Sprintf("%d", req.Model.Dimensions)).
				WithDetail("corpus_dimensions", fmt.Sprintf("%d", existing.ModelDimensions)).
				WithResolution(ragerr.Rebuild("raglite ingest --force-rebuild"))
		}
	}

	if existing.Mode != req.Mode && !req.ForceRebuild {
		return nil, ragerr.New(ragerr.KindModeMismatch,
			fmt.Sprintf("corpus mode is %q, requested mode is %q", existing.Mode, req.Mode), nil).
			WithDetail("existing_mode", string(existing.Mode)).
			WithDetail("requested_mode", string(req.Mode)).
			WithResolution(ragerr.Rebuild("raglite ingest --force-rebuild"))
	}

	return result, nil
}

// NewSystemInfo builds the SystemInfo record for a freshly validated
// request, intended for first-ingest or force-rebuild callers.
func NewSystemInfo(req Request, reranking store.RerankingStrategy) *store.SystemInfo {
	supported := []store.ContentType{store.ContentTypeText}
	if req.Mode == store.ModeMultimodal {
		supported = append(supported, store.ContentTypeImage)
	}
	return &store.SystemInfo{
		Mode:                  req.Mode,
		ModelName:             req.Model.Name,
		ModelType:             req.Model.Type,
		ModelDimensions:       req.Model.Dimensions,
		SupportedContentTypes: supported,
		RerankingStrategy:     reranking,
	}
}
