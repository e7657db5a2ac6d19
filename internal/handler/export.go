package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/Evaldo-hub/associacaoufpa/internal/models"
	"github.com/Evaldo-hub/associacaoufpa/internal/service"
	"github.com/Evaldo-hub/associacaoufpa/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	statementSheet = "Extrato"
	duesSheet      = "Mensalidades"
)

var statementHeader = []string{"Data", "Categoria", "Descrição", "Jogador", "Entrada", "Saída", "Saldo"}

// ExportHandler downloads the running-balance statement as CSV or XLSX,
// and the dues report as XLSX. Exports take the same query parameters as
// the matching JSON endpoints.
type ExportHandler struct {
	Reports *service.Reports
	Dues    *service.Dues
	Clock   clockwork.Clock
}

func NewExportHandler(reports *service.Reports, dues *service.Dues, clock clockwork.Clock) *ExportHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ExportHandler{Reports: reports, Dues: dues, Clock: clock}
}

func (h *ExportHandler) statement(c *gin.Context) (*service.Statement, bool) {
	f, ok := statementFilter(c)
	if !ok {
		return nil, false
	}
	st, err := h.Reports.RunningBalance(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return st, true
}

func (h *ExportHandler) filename(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, h.Clock.Now().Format("20060102"), ext)
}

// statementRow renders one line as the columns of statementHeader.
func statementRow(l service.StatementLine) []string {
	e := l.Entry
	player := ""
	if e.Player != nil {
		player = e.Player.Name
	}
	in, out := e.Amount.StringFixed(2), ""
	if e.Category.Outflow() {
		in, out = "", e.Amount.StringFixed(2)
	}
	return []string{
		e.Date.Format("02/01/2006"),
		categoryLabel(e.Category),
		e.Description,
		player,
		in,
		out,
		l.Balance.StringFixed(2),
	}
}

func categoryLabel(c models.LedgerCategory) string {
	switch c {
	case models.LedgerDues:
		return "Mensalidade"
	case models.LedgerMatchPayment:
		return "Pagamento de jogo"
	case models.LedgerExpense:
		return "Despesa"
	case models.LedgerIncome:
		return "Entrada avulsa"
	}
	return string(c)
}

func (h *ExportHandler) CSV(c *gin.Context) {
	st, ok := h.statement(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.filename("extrato", "csv")))

	// UTF-8 BOM so spreadsheet tools pick the right encoding
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	w.Comma = ';'
	_ = w.Write(statementHeader)
	for _, l := range st.Lines {
		_ = w.Write(statementRow(l))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Warn().Err(err).Msg("write statement csv")
	}
}

func (h *ExportHandler) XLSX(c *gin.Context) {
	st, ok := h.statement(c)
	if !ok {
		return
	}

	f, err := newWorkbook(statementSheet)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not create sheet")
		return
	}
	defer f.Close()

	rows := [][]interface{}{cells(statementHeader)}
	for _, l := range st.Lines {
		rows = append(rows, statementCells(l))
	}
	// totals below the last line
	rows = append(rows,
		nil,
		[]interface{}{"Total de entradas", money(st.TotalIn)},
		[]interface{}{"Total de saídas", money(st.TotalOut)},
		[]interface{}{"Saldo", money(st.Balance)},
	)
	if err := writeRows(f, statementSheet, rows); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not write sheet")
		return
	}
	_ = f.SetColWidth(statementSheet, "A", "B", 16)
	_ = f.SetColWidth(statementSheet, "C", "C", 48)
	_ = f.SetColWidth(statementSheet, "D", "D", 24)

	h.sendWorkbook(c, f, h.filename("extrato", "xlsx"))
}

// DuesXLSX writes one row per dues entry, grouped by member, with a
// subtotal per member.
func (h *ExportHandler) DuesXLSX(c *gin.Context) {
	filter, ok := duesFilter(c)
	if !ok {
		return
	}
	report, err := h.Dues.ListDues(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := newWorkbook(duesSheet)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not create sheet")
		return
	}
	defer f.Close()

	rows := [][]interface{}{{"Jogador", "Período", "Data", "Valor"}}
	for _, m := range report.Members {
		for _, e := range m.Entries {
			period := ""
			if e.Period != nil {
				period = *e.Period
			}
			rows = append(rows, []interface{}{m.Player.Name, period, e.Date.Format("02/01/2006"), money(e.Amount)})
		}
		rows = append(rows, []interface{}{"Subtotal " + m.Player.Name, "", "", money(m.Total)})
	}
	rows = append(rows, nil, []interface{}{"Total", "", "", money(report.Total)})

	if err := writeRows(f, duesSheet, rows); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "could not write sheet")
		return
	}
	_ = f.SetColWidth(duesSheet, "A", "A", 32)
	_ = f.SetColWidth(duesSheet, "B", "C", 16)

	h.sendWorkbook(c, f, h.filename("mensalidades", "xlsx"))
}

func (h *ExportHandler) sendWorkbook(c *gin.Context, f *excelize.File, name string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := f.Write(c.Writer); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("write xlsx")
	}
}

// newWorkbook returns a file whose only sheet is called name.
func newWorkbook(name string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// money keeps amounts numeric so the sheet can sum them.
func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func statementCells(l service.StatementLine) []interface{} {
	out := cells(statementRow(l))
	if l.Entry.Category.Outflow() {
		out[5] = money(l.Entry.Amount)
	} else {
		out[4] = money(l.Entry.Amount)
	}
	out[6] = money(l.Balance)
	return out
}
