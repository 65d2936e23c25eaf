package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tbscrm/internal/domain/attachments"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/platform/i18n"
)

const unicodeFamily = "report"

var statusLabelKeys = map[tasks.Status]string{
	tasks.StatusTodo:       "task_todo",
	tasks.StatusInProgress: "task_progress",
	tasks.StatusReview:     "task_review",
	tasks.StatusDone:       "task_done",
}

func StatusLabel(lang i18n.Lang, s tasks.Status) string {
	if key, ok := statusLabelKeys[s]; ok {
		return i18n.T(lang, key)
	}
	return string(s)
}

func PeriodLabel(lang i18n.Lang, p Period) string {
	if p == PeriodNone {
		return i18n.T(lang, "period_ALL")
	}
	return i18n.T(lang, "period_"+string(p))
}

// Renderer writes PDF documents. With FontPath set to a TrueType font the
// text keeps its diacritics; otherwise the core Helvetica font is used and
// Vietnamese marks are folded to plain Latin letters.
type Renderer struct {
	FontPath string
	AppName  string
}

type doc struct {
	pdf    *gofpdf.Fpdf
	family string
	text   func(string) string
}

func (r Renderer) newDoc() *doc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	d := &doc{pdf: pdf, family: "Helvetica", text: foldLatin}
	if r.FontPath != "" {
		pdf.AddUTF8Font(unicodeFamily, "", r.FontPath)
		pdf.AddUTF8Font(unicodeFamily, "B", r.FontPath)
		if pdf.Ok() {
			d.family = unicodeFamily
			d.text = func(s string) string { return s }
		} else {
			pdf.ClearError()
		}
	}
	pdf.AddPage()
	return d
}

func (d *doc) font(style string, size float64) {
	d.pdf.SetFont(d.family, style, size)
}

func (d *doc) cell(w, h float64, txt, border string, ln int, align string, fill bool) {
	d.pdf.CellFormat(w, h, d.text(txt), border, ln, align, fill, 0, "")
}

// WorkReport renders the printable task report.
func (r Renderer) WorkReport(w io.Writer, lang i18n.Lang, report TaskReport, preparedBy string) error {
	d := r.newDoc()
	pdf := d.pdf

	d.font("B", 16)
	d.cell(0, 9, i18n.T(lang, "reportTitle"), "", 1, "C", false)
	d.font("", 10)
	subtitle := i18n.T(lang, "reportSubtitle")
	if r.AppName != "" {
		subtitle = strings.ToUpper(r.AppName)
	}
	d.cell(0, 6, subtitle, "", 1, "C", false)
	d.cell(0, 6, fmt.Sprintf("%s: %s  |  %s: %s",
		i18n.T(lang, "reportPeriod"), PeriodLabel(lang, report.Period),
		i18n.T(lang, "reportDate"), report.Reference), "", 1, "C", false)
	pdf.Ln(4)

	if emp := report.Employee; emp != nil {
		d.font("B", 11)
		d.cell(0, 6, fmt.Sprintf("%s (%s)", emp.FullName, emp.Code), "", 1, "L", false)
		d.font("", 10)
		d.cell(0, 6, strings.TrimSpace(emp.Position+"  "+emp.DepartmentID), "", 1, "L", false)
		pdf.Ln(2)
	}

	boxes := []struct {
		label string
		value string
	}{
		{i18n.T(lang, "totalTasks"), i18n.FormatInt(lang, report.Stats.Total)},
		{i18n.T(lang, "task_done"), i18n.FormatInt(lang, report.Stats.Done)},
		{i18n.T(lang, "task_progress"), i18n.FormatInt(lang, report.Stats.InProgress)},
		{i18n.T(lang, "completionRate"), strconv.Itoa(report.Stats.CompletionRate) + "%"},
	}
	pdf.SetFillColor(241, 245, 249)
	boxW := 180.0 / float64(len(boxes))
	d.font("", 9)
	for _, b := range boxes {
		d.cell(boxW, 7, b.label, "LTR", 0, "C", true)
	}
	pdf.Ln(-1)
	d.font("B", 14)
	for _, b := range boxes {
		d.cell(boxW, 10, b.value, "LBR", 0, "C", true)
	}
	pdf.Ln(14)

	withAssignee := report.Employee == nil
	cols := []float64{10, 80, 30, 25, 35}
	if !withAssignee {
		cols = []float64{10, 115, 30, 25, 0}
	}
	headers := []string{"#", i18n.T(lang, "title"), i18n.T(lang, "status"), i18n.T(lang, "dueDate"), i18n.T(lang, "assignTo")}
	d.font("B", 9)
	pdf.SetFillColor(226, 232, 240)
	for i, h := range headers {
		if cols[i] == 0 {
			continue
		}
		d.cell(cols[i], 7, h, "1", 0, "C", true)
	}
	pdf.Ln(-1)

	d.font("", 9)
	if len(report.Rows) == 0 {
		d.cell(180, 8, i18n.T(lang, "noData"), "1", 1, "C", false)
	}
	for _, row := range report.Rows {
		title := row.Title
		if row.Description != "" {
			title += " - " + row.Description
		}
		if kinds := kindSummary(row.Attachments); kinds != "" {
			title += " [" + kinds + "]"
		}
		d.cell(cols[0], 7, strconv.Itoa(row.Index), "1", 0, "C", false)
		d.cell(cols[1], 7, truncate(title, int(cols[1]/1.9)), "1", 0, "L", false)
		d.cell(cols[2], 7, StatusLabel(lang, row.Status), "1", 0, "C", false)
		d.cell(cols[3], 7, row.DueDate, "1", 0, "C", false)
		if withAssignee {
			d.cell(cols[4], 7, truncate(row.Assignee, 20), "1", 0, "L", false)
		}
		pdf.Ln(-1)
	}

	pdf.Ln(16)
	d.font("B", 10)
	d.cell(90, 6, i18n.T(lang, "preparedBy"), "", 0, "C", false)
	d.cell(90, 6, i18n.T(lang, "approvedBy"), "", 1, "C", false)
	pdf.Ln(18)
	d.font("", 10)
	d.cell(90, 6, preparedBy, "", 0, "C", false)

	return pdf.Output(w)
}

// Payslip renders one employee's salary breakdown.
func (r Renderer) Payslip(w io.Writer, lang i18n.Lang, emp core.Employee, departmentName string) error {
	d := r.newDoc()
	pdf := d.pdf
	row := core.PayrollFor(emp)

	d.font("B", 16)
	d.cell(0, 10, i18n.T(lang, "payslipTitle"), "", 1, "C", false)
	if r.AppName != "" {
		d.font("", 10)
		d.cell(0, 6, r.AppName, "", 1, "C", false)
	}
	pdf.Ln(6)

	d.font("", 11)
	d.cell(0, 7, fmt.Sprintf("%s (%s)", emp.FullName, emp.Code), "", 1, "L", false)
	d.cell(0, 7, strings.TrimSpace(emp.Position+"  "+departmentName), "", 1, "L", false)
	pdf.Ln(4)

	line := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		d.font(style, 11)
		d.cell(120, 8, label, "B", 0, "L", false)
		d.cell(60, 8, value, "B", 1, "R", false)
	}
	a := row.Allowances
	line(i18n.T(lang, "baseSalary"), i18n.FormatMoney(lang, row.BaseSalary), false)
	for _, item := range []struct {
		key    string
		amount float64
	}{
		{"allow_phone", a.Phone},
		{"allow_housing", a.Housing},
		{"allow_social", a.Social},
		{"allow_dependents", a.Dependents},
		{"allow_travel", a.Travel},
		{"allow_bonus", a.Bonus},
	} {
		line(i18n.T(lang, "allowances")+": "+i18n.T(lang, item.key), i18n.FormatMoney(lang, item.amount), false)
	}
	line(i18n.T(lang, "allowances"), i18n.FormatMoney(lang, row.TotalAllowances), true)
	line(i18n.T(lang, "workDays"), i18n.FormatInt(lang, row.WorkDays), false)
	line(i18n.T(lang, "dependents"), i18n.FormatInt(lang, row.DependentCount), false)
	line(i18n.T(lang, "totalIncome"), i18n.FormatMoney(lang, row.TotalIncome), true)

	return pdf.Output(w)
}

// WriteCSV exports the report rows with a header line.
func WriteCSV(w io.Writer, lang i18n.Lang, report TaskReport) error {
	cw := csv.NewWriter(w)
	header := []string{"#", "id", i18n.T(lang, "title"), i18n.T(lang, "status"), i18n.T(lang, "dueDate"), i18n.T(lang, "assignTo"), i18n.T(lang, "attachments")}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range report.Rows {
		rec := []string{
			strconv.Itoa(row.Index),
			row.TaskID,
			row.Title,
			StatusLabel(lang, row.Status),
			row.DueDate,
			row.Assignee,
			kindSummary(row.Attachments),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func kindSummary(kinds []attachments.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

// foldLatin strips combining marks so text fits the core PDF fonts.
func foldLatin(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
