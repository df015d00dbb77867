package mutations

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-engine/internal/model"
	"proposal-engine/internal/plancatalog"
)

func target() *Target {
	return &Target{Record: model.NewDefault(), Catalog: plancatalog.Default()}
}

func command(name, props string) *model.Command {
	cmd := &model.Command{CommandID: "c1", Name: name}
	if props != "" {
		cmd.Properties = json.RawMessage(props)
	}
	return cmd
}

func validate(t *testing.T, name, props string) []model.CommandMessage {
	t.Helper()
	h, ok := Get(name)
	require.True(t, ok, "handler %s not registered", name)
	return h.Validate(target(), command(name, props))
}

func firstCode(msgs []model.CommandMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0].Code
}

func TestRegistryLookup(t *testing.T) {
	_, ok := Get("calculate")
	assert.False(t, ok)

	for _, name := range []string{"select_type", "select_plan", "edit_field", "next", "back",
		"publish", "self_service_update", "escalate", "simulate_drift", "reconcile", "reset", "load_sample"} {
		_, ok := Get(name)
		assert.True(t, ok, name)
	}
}

func TestEditFieldValidate(t *testing.T) {
	cases := []struct {
		name  string
		props string
		code  string
	}{
		{"text field", `{"field":"proposerName","value":"Asha"}`, ""},
		{"null clears", `{"field":"mobileNumber","value":null}`, ""},
		{"declaration bool", `{"field":"declarationAccepted","value":true}`, ""},
		{"declaration null", `{"field":"declarationAccepted","value":null}`, ""},
		{"declaration not bool", `{"field":"declarationAccepted","value":"yes"}`, "INVALID_VALUE"},
		{"text not string", `{"field":"vehicleValueINR","value":900000}`, "INVALID_VALUE"},
		{"derived premium", `{"field":"annualPremiumINR","value":"1"}`, "READ_ONLY_FIELD"},
		{"derived package", `{"field":"coveragePackage","value":"x"}`, "READ_ONLY_FIELD"},
		{"unknown field", `{"field":"colour","value":"red"}`, "UNKNOWN_FIELD"},
		{"unknown plan", `{"field":"policyType","value":"Platinum"}`, "UNKNOWN_PLAN"},
		{"clear plan", `{"field":"policyType","value":""}`, ""},
		{"bad json", `{"field":`, "INVALID_PROPERTIES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, firstCode(validate(t, "edit_field", tc.props)))
		})
	}
}

func TestEditFieldApplyTrims(t *testing.T) {
	tg := target()
	h := &EditFieldHandler{}
	h.Apply(tg, command("edit_field", `{"field":"proposerName","value":"  Asha Rao  "}`))
	assert.Equal(t, "Asha Rao", tg.Record.Proposal.ProposerName)

	h.Apply(tg, command("edit_field", `{"field":"declarationAccepted","value":true}`))
	assert.True(t, tg.Record.Proposal.DeclarationAccepted)

	h.Apply(tg, command("edit_field", `{"field":"declarationAccepted","value":null}`))
	assert.False(t, tg.Record.Proposal.DeclarationAccepted)
}

func TestSelectValidate(t *testing.T) {
	assert.Equal(t, "", firstCode(validate(t, "select_type", `{"insurance_type":"auto"}`)))
	assert.Equal(t, "INVALID_INSURANCE_TYPE", firstCode(validate(t, "select_type", `{"insurance_type":"boat"}`)))
	assert.Equal(t, "INVALID_INSURANCE_TYPE", firstCode(validate(t, "select_type", "")))

	assert.Equal(t, "", firstCode(validate(t, "select_plan", `{"plan":"Gold"}`)))
	assert.Equal(t, "UNKNOWN_PLAN", firstCode(validate(t, "select_plan", `{"plan":"gold"}`)))
}

func TestCriticalAndWarningLevels(t *testing.T) {
	assert.Equal(t, model.LevelCritical, critical("X", "x").Level)
	assert.Equal(t, model.LevelWarning, warning("Y", "y").Level)
}
