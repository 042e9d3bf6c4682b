// Package renderer turns engine views into markdown for terminal display.
package renderer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/money"
)

const dateLayout = "02/01/2006"

func date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

// SummaryMarkdown renders the profitability block of a property.
func SummaryMarkdown(s engine.Summary) string {
	var b strings.Builder
	fmt.Fprintln(&b, "| Indicador | Valor |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Lucro Total | %s |\n", money.Format(s.LucroTotal))
	fmt.Fprintf(&b, "| Lucro por Cota | %s |\n", money.Format(s.LucroPorCota))
	fmt.Fprintf(&b, "| Custo do Investimento | %s |\n", money.Format(s.CustoInvestimento))
	fmt.Fprintf(&b, "| ROI Total | %s |\n", money.FormatPercent(s.RoiTotal, 2))
	fmt.Fprintf(&b, "| ROI Mensal | %s |\n", money.FormatPercent(s.RoiMensal, 2))
	fmt.Fprintf(&b, "| Duração | %s meses |\n", strings.Replace(fmt.Sprintf("%.1f", s.DurationMonths), ".", ",", 1))
	return b.String()
}

// PropertyMarkdown renders the full form of the active property: metadata,
// every visible field group and the summary.
func PropertyMarkdown(v engine.PropertyView) string {
	if v.Imovel == "" {
		return "Nenhum imóvel cadastrado.\n"
	}
	var b strings.Builder
	m := v.Metadata
	fmt.Fprintf(&b, "# %s (%s)\n\n", v.Imovel, v.Cenario)
	fmt.Fprintf(&b, "- **Local:** %s/%s\n", m.Cidade, m.Estado)
	fmt.Fprintf(&b, "- **Compra:** %s, %s\n", m.TipoCompra, date(&m.DataCompra))
	fmt.Fprintf(&b, "- **Venda:** %s (vendido: %s)\n", date(m.DataVenda), m.Vendido)
	fmt.Fprintf(&b, "- **Cotistas:** %d\n", m.NumCotistas)
	fmt.Fprintf(&b, "- **Status:** %s\n", m.StatusImovel)
	if v.PendingUndo != "" {
		fmt.Fprintf(&b, "\n> %s foi excluído. Use `undo` para restaurar.\n", v.PendingUndo)
	}

	for _, g := range v.Groups {
		var rows strings.Builder
		for _, f := range g.Fields {
			if f.Hidden {
				continue
			}
			var flags []string
			if !f.Editable {
				flags = append(flags, "calculado")
			}
			if f.Overridden {
				flags = append(flags, "manual")
			}
			if f.Replicated {
				flags = append(flags, "projetado")
			}
			label := f.Label
			if f.Highlighted {
				label = "**" + label + "**"
			}
			fmt.Fprintf(&rows, "| %s | %s | %s | %s |\n", label, money.Format(f.Valor), money.Format(f.Cota), strings.Join(flags, ", "))
		}
		if rows.Len() == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", g.Title)
		fmt.Fprintln(&b, "| Campo | Valor | Por Cota | |")
		fmt.Fprintln(&b, "|:---|---:|---:|:---|")
		b.WriteString(rows.String())
	}

	fmt.Fprintf(&b, "\n## Resumo\n\n")
	b.WriteString(SummaryMarkdown(v.Summary))

	fmt.Fprintf(&b, "\n## Taxas\n\n")
	fmt.Fprintf(&b, "ITBI %s, Entrada %s, Ganho de Capital %s, Corretor %s, Leiloeiro %s\n",
		money.FormatPercent(v.Rates.ITBI, 1),
		money.FormatPercent(v.Rates.EntradaFinanciado, 1),
		money.FormatPercent(v.Rates.GanhoCapital, 1),
		money.FormatPercent(v.Rates.ComissaoCorretor, 1),
		money.FormatPercent(v.Rates.ComissaoLeiloeiro, 1),
	)
	return b.String()
}

// ListMarkdown renders property names grouped by status, marking the active
// one.
func ListMarkdown(list engine.PropertyList, active string) string {
	if len(list.All) == 0 {
		return "Nenhum imóvel cadastrado.\n"
	}
	var b strings.Builder
	section := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, n := range names {
			if n == active {
				fmt.Fprintf(&b, "- **%s** (ativo)\n", n)
			} else {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
		b.WriteString("\n")
	}
	section("Em andamento", list.EmAndamento)
	section("Finalizados", list.Finalizados)
	return b.String()
}

// ReportMarkdown renders one row per property and scenario.
func ReportMarkdown(report []engine.PropertySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Carteira\n\n")
	if len(report) == 0 {
		b.WriteString("Nenhum imóvel cadastrado.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Imóvel | Cenário | Status | Lucro Total | ROI Total | ROI Mensal |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|")
	var total float64
	for _, p := range report {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			p.Imovel,
			p.Cenario,
			p.Status,
			money.Format(p.Summary.LucroTotal),
			money.FormatPercent(p.Summary.RoiTotal, 2),
			money.FormatPercent(p.Summary.RoiMensal, 2),
		)
		if p.Cenario == domain.Projetado {
			total += p.Summary.LucroTotal
		}
	}
	fmt.Fprintf(&b, "\n**Lucro projetado da carteira:** %s\n", money.Format(total))
	return b.String()
}
