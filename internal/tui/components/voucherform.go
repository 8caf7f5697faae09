package components

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/yesan/internal/common"
	"github.com/Veraticus/yesan/internal/extract"
	"github.com/Veraticus/yesan/internal/model"
	"github.com/Veraticus/yesan/internal/tui/themes"
	"github.com/Veraticus/yesan/internal/validation"
	"github.com/Veraticus/yesan/internal/voucher"
)

// Upload notices.
const (
	UploadRejectedMessage = "❌ 이미지 또는 PDF 파일만 업로드할 수 있습니다."
	UploadFailedMessage   = "❌ 증빙 서류를 읽는 중 오류가 발생했습니다."
	AutoFillDoneMessage   = "✓ 자동 입력 완료"
)

type formMode int

const (
	formBrowse formMode = iota
	formEdit
	formUpload
)

// ruleAnchors places each rule's inline message under one field.
var ruleAnchors = map[model.Field]validation.Rule{
	model.FieldTaxInvoiceAccount: validation.RuleAccount,
	model.FieldTaxInvoiceAmount:  validation.RuleInvoice,
	model.FieldExchangeRateDate:  validation.RuleExchangeDate,
	model.FieldDescription:       validation.RulePeriod,
}

type validationMsg struct{}

type uploadDoneMsg struct {
	err  error
	kind extract.Kind
}

type submitDoneMsg struct {
	err    error
	record *model.VoucherRecord
}

type resetDoneMsg struct{ err error }

// VoucherFormModel is the voucher entry screen.
type VoucherFormModel struct {
	theme      themes.Theme
	form       *voucher.Form
	inputs     map[model.Field]textinput.Model
	path       textinput.Model
	uploadKind extract.Kind
	notice     string
	mode       formMode
	focus      int
	receipt    int
	width      int
	height     int
	noticeErr  bool
	busy       bool
}

// NewVoucherFormModel creates the voucher screen around form.
func NewVoucherFormModel(form *voucher.Form, theme themes.Theme) VoucherFormModel {
	inputs := make(map[model.Field]textinput.Model, len(model.EditableFields))
	for _, f := range model.EditableFields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Width = 32
		switch f {
		case model.FieldTransactionDate, model.FieldPaymentDueDate, model.FieldExchangeRateDate:
			ti.Placeholder = "YYYY-MM-DD"
		case model.FieldDescription:
			ti.Placeholder = "예: 11월 회의비"
		}
		inputs[f] = ti
	}

	path := textinput.New()
	path.Placeholder = "파일 경로 (이미지 또는 PDF)"
	path.Width = 48

	m := VoucherFormModel{
		theme:  theme,
		form:   form,
		inputs: inputs,
		path:   path,
	}
	m.syncInputs()
	return m
}

// Init waits for the first validation result.
func (m VoucherFormModel) Init() tea.Cmd {
	return m.waitForValidation()
}

// Capturing reports whether keystrokes go to a text field.
func (m VoucherFormModel) Capturing() bool {
	return m.mode != formBrowse
}

func (m VoucherFormModel) waitForValidation() tea.Cmd {
	updates := m.form.Updates()
	return func() tea.Msg {
		<-updates
		return validationMsg{}
	}
}

// visibleFields hides the exchange-rate fields for the base currency.
func (m VoucherFormModel) visibleFields() []model.Field {
	foreign := m.form.Draft().ForeignCurrency()
	fields := make([]model.Field, 0, len(model.EditableFields))
	for _, f := range model.EditableFields {
		if !foreign && (f == model.FieldExchangeRate || f == model.FieldExchangeRateDate) {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func (m VoucherFormModel) focusedField() model.Field {
	fields := m.visibleFields()
	return fields[min(m.focus, len(fields)-1)]
}

func (m *VoucherFormModel) syncInputs() {
	draft := m.form.Draft()
	for f, ti := range m.inputs {
		ti.SetValue(draft.Get(f))
		m.inputs[f] = ti
	}
}

func (m *VoucherFormModel) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m VoucherFormModel) upload(kind extract.Kind, path string) tea.Cmd {
	form := m.form
	return func() tea.Msg {
		doc, err := extract.LoadDocument(path)
		if err != nil {
			return uploadDoneMsg{kind: kind, err: err}
		}
		ctx, cancel := requestContext()
		defer cancel()
		_, err = form.Upload(ctx, kind, doc)
		return uploadDoneMsg{kind: kind, err: err}
	}
}

func (m VoucherFormModel) submit() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		rec, err := form.Submit(ctx)
		return submitDoneMsg{record: rec, err: err}
	}
}

func (m VoucherFormModel) reset() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return resetDoneMsg{err: form.Reset(ctx)}
	}
}

// Update handles messages.
func (m VoucherFormModel) Update(msg tea.Msg) (VoucherFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case validationMsg:
		return m, m.waitForValidation()

	case uploadDoneMsg:
		m.busy = false
		switch {
		case errors.Is(msg.err, extract.ErrUnsupportedDocument):
			m.setNotice(UploadRejectedMessage, true)
		case msg.err != nil:
			m.setNotice(UploadFailedMessage, true)
		case msg.kind == extract.KindReceipt:
			m.receipt = len(m.form.Receipts()) - 1
			m.setNotice(fmt.Sprintf("%s 업로드 완료", msg.kind.Label()), false)
		default:
			m.syncInputs()
			m.setNotice(msg.kind.Label()+" "+AutoFillDoneMessage, false)
		}
		return m, nil

	case submitDoneMsg:
		m.busy = false
		var missing *voucher.MissingFieldsError
		switch {
		case errors.As(msg.err, &missing):
			m.setNotice("⚠️ "+missing.Error(), true)
		case msg.err != nil:
			m.setNotice(common.UserMessage(msg.err, voucher.SubmitBlockedMessage), true)
		default:
			m.setNotice(voucher.SubmitSuccessMessage, false)
		}
		return m, nil

	case resetDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setNotice("❌ "+msg.err.Error(), true)
			return m, nil
		}
		m.focus, m.receipt = 0, 0
		m.syncInputs()
		m.setNotice("", false)
		return m, nil

	case tea.WindowSizeMsg:
		m.Resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case formEdit:
			return m.updateEdit(msg)
		case formUpload:
			return m.updateUpload(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m VoucherFormModel) updateBrowse(msg tea.KeyMsg) (VoucherFormModel, tea.Cmd) {
	fields := m.visibleFields()
	switch msg.String() {
	case "up", "k":
		if m.focus > 0 {
			m.focus--
		}
	case "down", "j":
		if m.focus < len(fields)-1 {
			m.focus++
		}
	case "left", "right":
		if m.focusedField() == model.FieldCurrency {
			m.cycleCurrency(msg.String() == "right")
		}
	case "enter", "e":
		if m.focusedField() == model.FieldCurrency {
			m.cycleCurrency(true)
			return m, nil
		}
		m.mode = formEdit
		ti := m.inputs[m.focusedField()]
		cmd := ti.Focus()
		m.inputs[m.focusedField()] = ti
		return m, cmd
	case "R", "T", "I":
		m.uploadKind = map[string]extract.Kind{"R": extract.KindReceipt, "T": extract.KindTaxInvoice, "I": extract.KindInvoice}[msg.String()]
		m.mode = formUpload
		m.path.Reset()
		return m, m.path.Focus()
	case ",":
		if m.receipt > 0 {
			m.receipt--
		}
	case ".":
		if m.receipt < len(m.form.Receipts())-1 {
			m.receipt++
		}
	case "a":
		if err := m.form.AutoFillFromReceipt(m.receipt); err != nil {
			m.setNotice("⚠️ 자동 입력할 영수증이 없습니다.", true)
			return m, nil
		}
		m.syncInputs()
		m.setNotice("영수증 "+AutoFillDoneMessage, false)
	case "s":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.submit()
	case "n":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.reset()
	}
	return m, nil
}

func (m *VoucherFormModel) cycleCurrency(forward bool) {
	current := m.form.Draft().Currency
	idx := 0
	for i, c := range model.Currencies {
		if c == current {
			idx = i
		}
	}
	step := 1
	if !forward {
		step = len(model.Currencies) - 1
	}
	next := model.Currencies[(idx+step)%len(model.Currencies)]
	if err := m.form.Set(model.FieldCurrency, next); err != nil {
		m.setNotice("❌ "+err.Error(), true)
		return
	}
	ti := m.inputs[model.FieldCurrency]
	ti.SetValue(next)
	m.inputs[model.FieldCurrency] = ti
	if fields := m.visibleFields(); m.focus >= len(fields) {
		m.focus = len(fields) - 1
	}
}

func (m VoucherFormModel) updateEdit(msg tea.KeyMsg) (VoucherFormModel, tea.Cmd) {
	field := m.focusedField()
	ti := m.inputs[field]

	switch msg.String() {
	case "esc", "enter":
		ti.Blur()
		// Show dates in the form they were stored.
		ti.SetValue(m.form.Draft().Get(field))
		m.inputs[field] = ti
		m.mode = formBrowse
		if msg.String() == "enter" && m.focus < len(m.visibleFields())-1 {
			m.focus++
		}
		return m, nil
	}

	var cmd tea.Cmd
	ti, cmd = ti.Update(msg)
	m.inputs[field] = ti
	if ti.Value() != m.form.Draft().Get(field) {
		if err := m.form.Set(field, ti.Value()); err != nil {
			m.setNotice("❌ "+err.Error(), true)
		}
	}
	return m, cmd
}

func (m VoucherFormModel) updateUpload(msg tea.KeyMsg) (VoucherFormModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = formBrowse
		m.path.Blur()
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		m.mode = formBrowse
		m.path.Blur()
		if path == "" {
			return m, nil
		}
		m.busy = true
		return m, m.upload(m.uploadKind, path)
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

// Resize sets the available area.
func (m *VoucherFormModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the form next to the attachments and validation panels.
func (m VoucherFormModel) View() string {
	draft := m.form.Draft()
	title := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("📝 전표 작성"),
		m.theme.Muted.Render("AI 자동 입력 및 실시간 검증"),
	)

	left := m.renderFields(draft)
	right := lipgloss.JoinVertical(lipgloss.Left, m.renderAttachments(), "", m.renderSummary(draft))

	var body string
	if m.width > 0 && m.width < 100 {
		body = lipgloss.JoinVertical(lipgloss.Left, left, "", right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", right)
	}

	sections := []string{title, "", body}
	if m.mode == formUpload {
		sections = append(sections, "", m.theme.Bold.Render("📎 "+m.uploadKind.Label()+" 업로드: ")+m.path.View())
	}
	if m.notice != "" {
		style := m.theme.StatusSuccess
		if m.noticeErr {
			style = m.theme.StatusError
		}
		sections = append(sections, "", style.Render(m.notice))
	}
	sections = append(sections, "", m.theme.Muted.Render(
		"[↑↓] 항목 | [Enter] 입력 | [←→] 통화 | [R/T/I] 영수증/세금계산서/Invoice 업로드 | [,.] 영수증 선택 | [a] 자동입력 | [s] 저장 | [n] 새 전표"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m VoucherFormModel) renderFields(draft model.Voucher) string {
	required := make(map[model.Field]bool)
	for _, f := range draft.RequiredFields() {
		required[f] = true
	}
	statuses := m.form.Statuses()

	lines := []string{
		m.theme.Subtitle.Render("전표 정보 입력"),
		fmt.Sprintf("%-14s %s", model.FieldVoucherID.Label(), m.theme.Bold.Render(draft.VoucherID)),
	}
	for i, f := range m.visibleFields() {
		label := f.Label()
		if required[f] {
			label += " *"
		}
		value := m.inputs[f].View()
		if f == model.FieldCurrency {
			value = "◀ " + m.theme.Bold.Render(draft.Currency) + " ▶"
		}
		line := fmt.Sprintf("%-14s %s", label, value)
		if i == m.focus {
			line = m.theme.StatusInfo.Render("▶ ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)

		if rule, ok := ruleAnchors[f]; ok && validation.Applicable(rule, draft) {
			if hint := rule.Message(statuses[rule]); hint != "" {
				style := m.theme.StatusSuccess
				if statuses[rule] == validation.Fail {
					style = m.theme.StatusError
				}
				lines = append(lines, "    "+style.Render(hint))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m VoucherFormModel) renderAttachments() string {
	lines := []string{m.theme.Subtitle.Render("📎 증빙 서류 업로드")}

	receipts := m.form.Receipts()
	lines = append(lines, m.theme.Bold.Render(fmt.Sprintf("영수증 (%d)", len(receipts))))
	for i, r := range receipts {
		marker := "  "
		if i == m.receipt {
			marker = m.theme.StatusInfo.Render("▶ ")
		}
		lines = append(lines, fmt.Sprintf("%s%s  %s  %s", marker, r.Name,
			m.theme.Muted.Render(r.Extracted.Vendor), model.FormatWon(r.Extracted.Amount)))
	}

	for _, att := range []struct {
		a     *voucher.Attachment
		label string
	}{
		{m.form.TaxInvoice(), extract.KindTaxInvoice.Label()},
		{m.form.Invoice(), extract.KindInvoice.Label()},
	} {
		if att.a == nil {
			lines = append(lines, m.theme.Bold.Render(att.label)+"  "+m.theme.Muted.Render("없음"))
			continue
		}
		lines = append(lines, m.theme.Bold.Render(att.label)+"  "+att.a.Name+"  "+m.theme.StatusSuccess.Render(AutoFillDoneMessage))
	}
	return m.theme.Card.Render(strings.Join(lines, "\n"))
}

func (m VoucherFormModel) renderSummary(draft model.Voucher) string {
	statuses := m.form.Statuses()
	lines := []string{m.theme.Subtitle.Render("✓ 실시간 검증")}
	for _, r := range validation.Rules {
		if !validation.Applicable(r, draft) {
			continue
		}
		st := statuses[r]
		switch st {
		case validation.Pass:
			lines = append(lines, m.theme.StatusSuccess.Render("✓ "+r.Label()))
		case validation.Fail:
			lines = append(lines, m.theme.StatusError.Render("✗ "+r.Label()))
		default:
			lines = append(lines, m.theme.StatusPending.Render("· "+r.Label()))
		}
	}
	if m.form.ValidationPending() {
		lines = append(lines, m.theme.Muted.Render("검증 중..."))
	}
	return m.theme.Card.Render(strings.Join(lines, "\n"))
}
