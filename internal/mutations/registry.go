package mutations

var registry = map[string]CommandHandler{
	"select_type":         &SelectTypeHandler{},
	"select_plan":         &SelectPlanHandler{},
	"edit_field":          &EditFieldHandler{},
	"next":                &NextHandler{},
	"back":                &BackHandler{},
	"publish":             &PublishHandler{},
	"self_service_update": &SelfServiceUpdateHandler{},
	"escalate":            &EscalateHandler{},
	"simulate_drift":      &SimulateDriftHandler{},
	"reconcile":           &ReconcileHandler{},
	"reset":               &ResetHandler{},
	"load_sample":         &LoadSampleHandler{},
}

func Get(name string) (CommandHandler, bool) {
	h, ok := registry[name]
	return h, ok
}
