// Package tui is a terminal front end for one wizard session.
//
// It follows the Elm architecture used by bubbletea: keys become commands on the
// engine session, and View draws whatever the session last rendered.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"proposal-engine/internal/engine"
	"proposal-engine/internal/model"
	"proposal-engine/internal/mutations"
	"proposal-engine/internal/plancatalog"
	"proposal-engine/internal/validation"
	"proposal-engine/internal/views"
	"proposal-engine/internal/wizard"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	stepStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	currentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	blockingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	advisoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// formField is one editable line on the proposal step.
type formField struct {
	name  string
	label string
	input textinput.Model
}

// App is the bubbletea model.
type App struct {
	ctx     context.Context
	session *engine.Session
	catalog *plancatalog.Catalog

	// rendered holds the latest text of each view, filled by the session's renderer.
	rendered map[model.ViewName]string
	pane     int

	fields      []formField
	cursor      int
	declaration bool

	status string
	output string
	width  int
}

// New resumes the session stored under opts.Key and wires the app in as its
// renderer.
func New(ctx context.Context, opts engine.Options) (*App, error) {
	if opts.Catalog == nil {
		opts.Catalog = plancatalog.Default()
	}
	a := &App{
		ctx:      ctx,
		catalog:  opts.Catalog,
		rendered: make(map[model.ViewName]string, len(model.AllViews)),
	}
	opts.Renderer = engine.RenderFunc(a.capture)

	sess, err := engine.LoadLast(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.session = sess
	a.fields = newFields()
	a.syncInputs()
	return a, nil
}

func (a *App) capture(view model.ViewName, rec *model.PolicyRecord) {
	a.rendered[view] = views.Render(view, rec, a.catalog)
}

func newFields() []formField {
	defs := []struct{ name, label, placeholder string }{
		{mutations.FieldPolicyPeriod, "Policy period", "1 Year"},
		{mutations.FieldProposerName, "Proposer name", "Full name"},
		{mutations.FieldMobileNumber, "Mobile number", "9876543210"},
		{mutations.FieldVehicleRegNumber, "Vehicle registration", "MH02AB1234"},
		{mutations.FieldVehicleValueINR, "Vehicle value (INR)", "900000"},
	}
	fields := make([]formField, len(defs))
	for i, d := range defs {
		in := textinput.New()
		in.Placeholder = d.placeholder
		in.CharLimit = 64
		fields[i] = formField{name: d.name, label: d.label, input: in}
	}
	return fields
}

// syncInputs copies the record into the form after anything other than a form edit.
func (a *App) syncInputs() {
	p := a.session.State().Record.Proposal
	values := map[string]string{
		mutations.FieldPolicyPeriod:     p.PolicyPeriod,
		mutations.FieldProposerName:     p.ProposerName,
		mutations.FieldMobileNumber:     p.MobileNumber,
		mutations.FieldVehicleRegNumber: p.VehicleRegNumber,
		mutations.FieldVehicleValueINR:  p.VehicleValueINR,
	}
	for i := range a.fields {
		a.fields[i].input.SetValue(values[a.fields[i].name])
	}
	a.declaration = p.DeclarationAccepted
	a.focus()
}

// declarationRow is the cursor index of the declaration checkbox.
func (a *App) declarationRow() int { return len(a.fields) }

func (a *App) focus() {
	for i := range a.fields {
		if i == a.cursor {
			a.fields[i].input.Focus()
		} else {
			a.fields[i].input.Blur()
		}
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) run(name string, props any) {
	resp, err := a.session.Do(a.ctx, name, props)
	a.output = ""
	switch {
	case err != nil:
		a.status = err.Error()
	case len(resp.Result.Messages) > 0:
		a.status = resp.Result.Messages[len(resp.Result.Messages)-1].Message
	default:
		a.status = ""
	}
	if resp != nil {
		for _, c := range resp.Result.Commands {
			if c.Output != "" {
				a.output = c.Output
			}
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "ctrl+n":
		a.commitField()
		a.run("next", nil)
		return a, nil
	case "ctrl+b":
		a.run("back", nil)
		return a, nil
	case "ctrl+s":
		a.run("load_sample", nil)
		a.syncInputs()
		return a, nil
	case "ctrl+x":
		a.run("reset", nil)
		a.syncInputs()
		return a, nil
	case "f2":
		a.pane = (a.pane + 1) % len(model.AllViews)
		return a, nil
	}

	switch wizard.Step(a.session.State().Step) {
	case wizard.StepType:
		switch key {
		case "a":
			a.run("select_type", map[string]string{"insurance_type": string(model.InsuranceAuto)})
		case "t":
			a.run("select_type", map[string]string{"insurance_type": string(model.InsuranceTwoWheeler)})
		case "q":
			return a, tea.Quit
		}
	case wizard.StepPlan:
		switch key {
		case "s":
			a.run("select_plan", map[string]string{"plan": string(model.PlanSilver)})
			a.syncInputs()
		case "g":
			a.run("select_plan", map[string]string{"plan": string(model.PlanGold)})
			a.syncInputs()
		case "q":
			return a, tea.Quit
		}
	case wizard.StepProposal:
		return a.handleFormKey(msg)
	case wizard.StepDocument:
		if key == "q" {
			return a, tea.Quit
		}
	case wizard.StepReview:
		switch key {
		case "p":
			a.run("publish", nil)
		case "d":
			a.run("simulate_drift", nil)
		case "r":
			a.run("reconcile", nil)
		case "e":
			a.run("escalate", nil)
		case "q":
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		a.commitField()
		a.cursor = (a.cursor + 1) % (len(a.fields) + 1)
		a.focus()
		return a, nil
	case "shift+tab", "up":
		a.commitField()
		a.cursor = (a.cursor + len(a.fields)) % (len(a.fields) + 1)
		a.focus()
		return a, nil
	case "enter":
		a.commitField()
		return a, nil
	case " ":
		if a.cursor == a.declarationRow() {
			a.declaration = !a.declaration
			a.run("edit_field", map[string]any{"field": mutations.FieldDeclarationAccepted, "value": a.declaration})
			return a, nil
		}
	}

	if a.cursor < len(a.fields) {
		var cmd tea.Cmd
		a.fields[a.cursor].input, cmd = a.fields[a.cursor].input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// commitField sends the focused input to the session when it differs from the record.
func (a *App) commitField() {
	if wizard.Step(a.session.State().Step) != wizard.StepProposal || a.cursor >= len(a.fields) {
		return
	}
	f := a.fields[a.cursor]
	p := a.session.State().Record.Proposal
	current := map[string]string{
		mutations.FieldPolicyPeriod:     p.PolicyPeriod,
		mutations.FieldProposerName:     p.ProposerName,
		mutations.FieldMobileNumber:     p.MobileNumber,
		mutations.FieldVehicleRegNumber: p.VehicleRegNumber,
		mutations.FieldVehicleValueINR:  p.VehicleValueINR,
	}[f.name]
	if strings.TrimSpace(f.input.Value()) == current {
		return
	}
	a.run("edit_field", map[string]any{"field": f.name, "value": f.input.Value()})
}

func (a *App) View() string {
	state := a.session.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("ClearCover proposal") + "\n")
	b.WriteString(a.stepBar(wizard.Step(state.Step)) + "\n\n")

	switch wizard.Step(state.Step) {
	case wizard.StepType:
		b.WriteString("What do you want to insure?\n  [a] Auto   [t] Two-wheeler\n")
		if state.Record.InsuranceType != model.InsuranceUnset {
			b.WriteString(hintStyle.Render("Selected: "+string(state.Record.InsuranceType)) + "\n")
		}
	case wizard.StepPlan:
		for _, plan := range a.catalog.Plans() {
			fmt.Fprintf(&b, "  [%s] %s • %s • ₹%s\n", strings.ToLower(string(plan.Key)[:1]),
				plan.PolicyName, plan.CoveredVehicleRule, validation.FormatINR(plan.PremiumINR))
		}
	case wizard.StepProposal:
		b.WriteString(a.formView(state))
	case wizard.StepDocument:
		b.WriteString(paneStyle.Render(a.rendered[model.ViewPDF]) + "\n")
	case wizard.StepReview:
		b.WriteString(a.reviewView(state))
	}

	b.WriteString("\n" + a.issuesView(state.Issues))
	if a.output != "" {
		b.WriteString("\n" + paneStyle.Render(a.output) + "\n")
	}
	if a.status != "" {
		b.WriteString("\n" + hintStyle.Render(a.status) + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("ctrl+n next • ctrl+b back • ctrl+s sample • ctrl+x reset • f2 view • ctrl+c quit") + "\n")
	return b.String()
}

func (a *App) stepBar(current wizard.Step) string {
	parts := make([]string, 0, wizard.LastStep+1)
	for s := wizard.FirstStep; s <= wizard.LastStep; s++ {
		label := fmt.Sprintf("%d. %s", s+1, s.Title())
		if s == current {
			parts = append(parts, currentStyle.Render(label))
		} else {
			parts = append(parts, stepStyle.Render(label))
		}
	}
	return strings.Join(parts, stepStyle.Render("  ›  "))
}

func (a *App) formView(state model.StateSnapshot) string {
	var b strings.Builder
	for i, f := range a.fields {
		marker := "  "
		if i == a.cursor {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%-22s %s\n", marker, f.label, f.input.View())
	}
	if hint := validation.VehicleValueHint(state.Record.Proposal, a.catalog); hint != "" {
		b.WriteString(hintStyle.Render("    "+hint) + "\n")
	}

	marker := "  "
	if a.cursor == a.declarationRow() {
		marker = "> "
	}
	box := "[ ]"
	if a.declaration {
		box = "[x]"
	}
	fmt.Fprintf(&b, "%s%s I confirm the details above are correct\n", marker, box)
	fmt.Fprintf(&b, "\n  Coverage package: %s   Premium: ₹%s\n",
		state.Record.Proposal.CoveragePackage, validation.FormatINR(state.Record.Proposal.AnnualPremiumINR))
	return b.String()
}

func (a *App) reviewView(state model.StateSnapshot) string {
	var b strings.Builder
	status := okStyle.Render(string(state.SyncStatus))
	if state.SyncStatus != model.SyncOK {
		status = blockingStyle.Render(string(state.SyncStatus))
	}
	fmt.Fprintf(&b, "Version v%d • sync %s\n", state.Record.Version, status)
	stamps := views.ViewStamps(state.Record)
	for _, v := range model.AllViews {
		fmt.Fprintf(&b, "  %-6s %s\n", v, stamps[v])
	}

	pane := model.AllViews[a.pane]
	fmt.Fprintf(&b, "\n%s view\n%s\n", pane, paneStyle.Render(a.rendered[pane]))

	b.WriteString("\nHistory\n")
	for _, line := range views.HistoryLines(state.Record) {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n  [p] publish  [d] simulate drift  [r] reconcile  [e] escalate\n")
	return b.String()
}

func (a *App) issuesView(issues []model.Issue) string {
	if len(issues) == 0 {
		return okStyle.Render("No issues") + "\n"
	}
	var b strings.Builder
	for _, is := range issues {
		style := advisoryStyle
		if is.Severity == model.SeverityBlocking {
			style = blockingStyle
		}
		b.WriteString(style.Render("• "+is.Message) + "\n")
	}

	counts := views.QualityBreakdown(issues)
	highest := 0
	for _, c := range counts {
		highest = max(highest, c.Count)
	}
	for _, c := range counts {
		fmt.Fprintf(&b, "  %-17s %s %d\n", c.Label, views.Bar(c.Count, highest, 10), c.Count)
	}
	return b.String()
}
