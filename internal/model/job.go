package model

// DeleteJob asks the deferred worker to delete the dependents of Source.
// Keys use the type__id form.
type DeleteJob struct {
	Source     string   `json:"source" msgpack:"source"`
	Dependents []string `json:"dependents" msgpack:"dependents"`
}
