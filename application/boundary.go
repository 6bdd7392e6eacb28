package application

import (
	"errors"

	"github.com/felixgeelhaar/artifact-go/domain/artifact"
	"github.com/felixgeelhaar/artifact-go/infrastructure/logging"
)

// OperatorHint follows every logged upload failure.
const OperatorHint = "Errors can be temporary, so please try again and optionally run with debug logging enabled for more information."

// boundary runs fn and logs its failure once. The error is returned
// unchanged so callers can match it with errors.Is and errors.As.
func boundary(name string, fn func() (artifact.UploadResult, error)) (artifact.UploadResult, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	event := logging.Warn().
		Add(logging.Artifact(name)).
		Add(logging.ErrorKind(artifact.ClassifyError(err))).
		Add(logging.ErrorField(err))

	var uploadErr *artifact.UploadError
	if errors.As(err, &uploadErr) {
		event = event.
			Add(logging.Key(uploadErr.Key)).
			Add(logging.FailureKind(uploadErr.Kind))
	}

	event.Add(logging.Str("hint", OperatorHint)).Msg("artifact upload failed")
	return artifact.UploadResult{}, err
}
