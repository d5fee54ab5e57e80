package saga

import "context"

// Default is the package-level orchestrator the top-level wrappers operate
// on. Programs that want isolation or options construct their own with New.
var Default = New()

// Register stores an action definition on the Default orchestrator.
func Register(a *Action) error {
	return Default.Register(a)
}

// RegisterHandler stores a handler constructor on the Default orchestrator.
func RegisterHandler(ref string, factory HandlerFactory) error {
	return Default.RegisterHandler(ref, factory)
}

// RegisterCompensator stores a compensator constructor on the Default
// orchestrator.
func RegisterCompensator(ref string, factory CompensatorFactory) error {
	return Default.RegisterCompensator(ref, factory)
}

// Subscribe registers a cascade on the Default orchestrator.
func Subscribe(subject string, status Status, targets ...string) error {
	return Default.Subscribe(subject, status, targets...)
}

// RegisterSubscription registers a cascade by subject key on the Default
// orchestrator.
func RegisterSubscription(subjectKey string, targets ...string) error {
	return Default.RegisterSubscription(subjectKey, targets...)
}

// IsRegistered reports whether fullName is registered on the Default
// orchestrator.
func IsRegistered(fullName string) bool {
	return Default.IsRegistered(fullName)
}

// Validate runs the structural validator on the Default orchestrator.
func Validate() error {
	return Default.Validate()
}

// StartAction begins a run on the Default orchestrator.
func StartAction(ctx context.Context, fullName string, callback func(*Result)) error {
	return Default.StartAction(ctx, fullName, callback)
}

// LatestResult returns the last result stored for fullName on the Default
// orchestrator.
func LatestResult(fullName string) (*Result, bool) {
	return Default.LatestResult(fullName)
}
