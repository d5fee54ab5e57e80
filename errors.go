package saga

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeIdentityInvalid        = "SAGA_IDENTITY_INVALID"
	ErrCodeAlreadyRegistered      = "SAGA_ALREADY_REGISTERED"
	ErrCodeActionNotFound         = "SAGA_ACTION_NOT_FOUND"
	ErrCodeHandlerMissing         = "SAGA_HANDLER_MISSING"
	ErrCodeCompensatorMissing     = "SAGA_COMPENSATOR_MISSING"
	ErrCodeDependencyUnregistered = "SAGA_DEPENDENCY_UNREGISTERED"
	ErrCodeSubjectUnknown         = "SAGA_SUBJECT_UNKNOWN"
	ErrCodeTargetUnknown          = "SAGA_TARGET_UNKNOWN"
	ErrCodeChannelViolation       = "SAGA_CHANNEL_VIOLATION"
	ErrCodeLoopStarted            = "SAGA_LOOP_ALREADY_STARTED"
	ErrCodeQueueEmpty             = "SAGA_QUEUE_EMPTY"
	ErrCodeRunAborted             = "SAGA_RUN_ABORTED"
	ErrCodeCompensationFailed     = "SAGA_COMPENSATION_FAILED"
	ErrCodeProviderReadOnly       = "SAGA_PROVIDER_READONLY"
)

var (
	ErrIdentityInvalid = apperrors.New("invalid action identity", apperrors.CategoryValidation).
				WithTextCode(ErrCodeIdentityInvalid)
	ErrAlreadyRegistered = apperrors.New("already registered", apperrors.CategoryConflict).
				WithTextCode(ErrCodeAlreadyRegistered)
	ErrActionNotFound = apperrors.New("action not registered", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeActionNotFound)
	ErrHandlerMissing = apperrors.New("handler ref not registered", apperrors.CategoryValidation).
				WithTextCode(ErrCodeHandlerMissing)
	ErrCompensatorMissing = apperrors.New("compensator ref not registered", apperrors.CategoryValidation).
				WithTextCode(ErrCodeCompensatorMissing)
	ErrDependencyUnregistered = apperrors.New("required action not registered", apperrors.CategoryValidation).
					WithTextCode(ErrCodeDependencyUnregistered)
	ErrSubjectUnknown = apperrors.New("subscription subject not registered", apperrors.CategoryValidation).
				WithTextCode(ErrCodeSubjectUnknown)
	ErrTargetUnknown = apperrors.New("subscription target not registered", apperrors.CategoryValidation).
				WithTextCode(ErrCodeTargetUnknown)
	ErrChannelViolation = apperrors.New("cross-channel subscription", apperrors.CategoryValidation).
				WithTextCode(ErrCodeChannelViolation)
	ErrLoopStarted = apperrors.New("loop already started", apperrors.CategoryConflict).
			WithTextCode(ErrCodeLoopStarted)
	ErrQueueEmpty = apperrors.New("nothing to run: queue is empty", apperrors.CategoryBadInput).
			WithTextCode(ErrCodeQueueEmpty)
	ErrRunAborted = apperrors.New("run aborted", apperrors.CategoryHandler).
			WithTextCode(ErrCodeRunAborted)
	ErrProviderReadOnly = apperrors.New("scope provider does not accept registrations", apperrors.CategoryConflict).
				WithTextCode(ErrCodeProviderReadOnly)
)

// structuralCodes are the pre-run failures the validator and registration
// surface; none of them leave compensations behind.
var structuralCodes = map[string]struct{}{
	ErrCodeIdentityInvalid:        {},
	ErrCodeAlreadyRegistered:      {},
	ErrCodeHandlerMissing:         {},
	ErrCodeCompensatorMissing:     {},
	ErrCodeDependencyUnregistered: {},
	ErrCodeSubjectUnknown:         {},
	ErrCodeTargetUnknown:          {},
	ErrCodeChannelViolation:       {},
	ErrCodeProviderReadOnly:       {},
}

func cloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrIdentityInvalid
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func errorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsStructural reports whether err is a registration or validation failure,
// raised before any task executed.
func IsStructural(err error) bool {
	_, ok := structuralCodes[errorCode(err)]
	return ok
}

// IsRunAborted reports whether err is a run abort: a handler failed,
// compensation already ran, and the run is terminated.
func IsRunAborted(err error) bool {
	return errorCode(err) == ErrCodeRunAborted
}

// RunAbortCause returns the handler failure that aborted the run, or nil
// when err is not a run abort.
func RunAbortCause(err error) error {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) && ge.TextCode == ErrCodeRunAborted {
		return ge.Source
	}
	return nil
}

func invalidIdentity(message string, source error, metadata map[string]any) error {
	return cloneError(ErrIdentityInvalid, message, source, metadata)
}

func alreadyRegistered(kind, key string) error {
	return cloneError(ErrAlreadyRegistered, kind+" "+key+" already registered", nil, map[string]any{
		"kind": kind,
		"key":  key,
	})
}

func actionNotFound(fullName string) error {
	return cloneError(ErrActionNotFound, "action "+fullName+" not registered", nil, map[string]any{
		"full_name": fullName,
	})
}

func handlerMissing(ref, serviceID string) error {
	return cloneError(ErrHandlerMissing, "handler "+ref+" not registered", nil, map[string]any{
		"ref":        ref,
		"service_id": serviceID,
	})
}

func compensatorMissing(ref, serviceID string) error {
	return cloneError(ErrCompensatorMissing, "compensator "+ref+" not registered", nil, map[string]any{
		"ref":        ref,
		"service_id": serviceID,
	})
}

func dependencyUnregistered(fullName, required string) error {
	return cloneError(ErrDependencyUnregistered, fullName+" requires unregistered action "+required, nil, map[string]any{
		"full_name": fullName,
		"required":  required,
	})
}

func subjectUnknown(key, subject string) error {
	return cloneError(ErrSubjectUnknown, "subscription "+key+" names unregistered subject "+subject, nil, map[string]any{
		"key":     key,
		"subject": subject,
	})
}

func targetUnknown(key, target string) error {
	return cloneError(ErrTargetUnknown, "subscription "+key+" names unregistered target "+target, nil, map[string]any{
		"key":    key,
		"target": target,
	})
}

func channelViolation(key, target string, subjectChannel, targetChannel Channel) error {
	return cloneError(ErrChannelViolation, "subscription "+key+" crosses channels to "+target, nil, map[string]any{
		"key":             key,
		"target":          target,
		"subject_channel": string(subjectChannel),
		"target_channel":  string(targetChannel),
	})
}

func providerReadOnly(kind, ref string) error {
	return cloneError(ErrProviderReadOnly, "cannot register "+kind+" "+ref+": scope provider is read only", nil, map[string]any{
		"kind": kind,
		"ref":  ref,
	})
}
