package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/shopspring/decimal"
)

// EntryRow is one financial entry as of an export.
type EntryRow struct {
	ExportID string `bigquery:"export_id"` // REQUIRED
	EntryID  string `bigquery:"entry_id"`  // REQUIRED

	Imovel      string `bigquery:"imovel"`       // REQUIRED
	Cenario     string `bigquery:"cenario"`      // REQUIRED
	TipoDespesa string `bigquery:"tipo_despesa"` // REQUIRED
	Descricao   string `bigquery:"descricao"`    // REQUIRED

	FluxoCaixa *big.Rat `bigquery:"fluxo_caixa"` // NUMERIC
	Cota       *big.Rat `bigquery:"cota"`        // NUMERIC
	Referencia *big.Rat `bigquery:"referencia"`  // NUMERIC, NULLABLE

	Estado      string            `bigquery:"estado"`
	Cidade      string            `bigquery:"cidade"`
	TipoCompra  string            `bigquery:"tipo_compra"`
	Vendido     string            `bigquery:"vendido"`
	NumCotistas int64             `bigquery:"num_cotistas"`
	DataCompra  bigquery.NullDate `bigquery:"data_compra"` // DATE, NULLABLE
	DataVenda   bigquery.NullDate `bigquery:"data_venda"`  // DATE, NULLABLE
	Status      string            `bigquery:"status_imovel"`

	ExportedTS time.Time `bigquery:"exported_ts"` // partition column
}

// SummaryRow is the profitability of one property and scenario as of an export.
type SummaryRow struct {
	ExportID string `bigquery:"export_id"` // REQUIRED

	Imovel     string `bigquery:"imovel"`
	Cenario    string `bigquery:"cenario"`
	Status     string `bigquery:"status_imovel"`
	TipoCompra string `bigquery:"tipo_compra"`

	NumCotistas int64             `bigquery:"num_cotistas"`
	DataCompra  bigquery.NullDate `bigquery:"data_compra"`
	DataVenda   bigquery.NullDate `bigquery:"data_venda"`

	LucroTotal        *big.Rat `bigquery:"lucro_total"`        // NUMERIC
	LucroPorCota      *big.Rat `bigquery:"lucro_por_cota"`     // NUMERIC
	CustoInvestimento *big.Rat `bigquery:"custo_investimento"` // NUMERIC
	RoiTotal          float64  `bigquery:"roi_total"`          // percent
	RoiMensal         float64  `bigquery:"roi_mensal"`         // percent
	DurationMonths    float64  `bigquery:"duration_months"`

	ExportedTS time.Time `bigquery:"exported_ts"` // partition column
}

// cents turns an amount into a NUMERIC rounded to two decimals.
func cents(v float64) *big.Rat {
	return decimal.NewFromFloat(v).Round(2).Rat()
}

func nullDate(t *time.Time) bigquery.NullDate {
	if t == nil || t.IsZero() {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(*t), Valid: true}
}

// NewEntryRows converts entries to rows of one export.
func NewEntryRows(exportID string, entries []domain.FinancialEntry, ts time.Time) []*EntryRow {
	rows := make([]*EntryRow, 0, len(entries))
	for _, e := range entries {
		row := &EntryRow{
			ExportID:    exportID,
			EntryID:     e.ID,
			Imovel:      e.Imovel,
			Cenario:     string(e.Cenario),
			TipoDespesa: string(e.TipoDespesa),
			Descricao:   e.Descricao,
			FluxoCaixa:  cents(e.FluxoCaixa),
			Cota:        cents(e.Cota),
			Estado:      e.Estado,
			Cidade:      e.Cidade,
			TipoCompra:  string(e.TipoCompra),
			Vendido:     string(e.Vendido),
			NumCotistas: int64(e.NumCotistas),
			DataCompra:  nullDate(&e.DataCompra),
			DataVenda:   nullDate(e.DataVenda),
			Status:      string(e.StatusImovel),
			ExportedTS:  ts,
		}
		if domain.IsReferenceOnly(e.Descricao) {
			row.Referencia = cents(e.Referencia)
		}
		rows = append(rows, row)
	}
	return rows
}

// NewSummaryRows converts a portfolio report to rows of one export.
func NewSummaryRows(exportID string, report []engine.PropertySummary, ts time.Time) []*SummaryRow {
	rows := make([]*SummaryRow, 0, len(report))
	for _, p := range report {
		rows = append(rows, &SummaryRow{
			ExportID:          exportID,
			Imovel:            p.Imovel,
			Cenario:           string(p.Cenario),
			Status:            string(p.Status),
			TipoCompra:        string(p.Metadata.TipoCompra),
			NumCotistas:       int64(p.Metadata.NumCotistas),
			DataCompra:        nullDate(&p.Metadata.DataCompra),
			DataVenda:         nullDate(p.Metadata.DataVenda),
			LucroTotal:        cents(p.Summary.LucroTotal),
			LucroPorCota:      cents(p.Summary.LucroPorCota),
			CustoInvestimento: cents(p.Summary.CustoInvestimento),
			RoiTotal:          p.Summary.RoiTotal,
			RoiMensal:         p.Summary.RoiMensal,
			DurationMonths:    p.Summary.DurationMonths,
			ExportedTS:        ts,
		})
	}
	return rows
}
