package notionsync

import (
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/money"
	"github.com/jomei/notionapi"
)

// Column names of the Notion database. TitleColumn holds the property name and
// is the sync key.
const (
	TitleColumn          = "Imóvel"
	StatusColumn         = "Status"
	EstadoColumn         = "Estado"
	CidadeColumn         = "Cidade"
	TipoCompraColumn     = "Tipo Compra"
	CotistasColumn       = "Cotistas"
	DataCompraColumn     = "Data Compra"
	DataVendaColumn      = "Data Venda"
	LucroProjetadoColumn = "Lucro Projetado"
	RoiProjetadoColumn   = "ROI Projetado (%)"
	LucroExecutadoColumn = "Lucro Executado"
	RoiExecutadoColumn   = "ROI Executado (%)"
	ResumoColumn         = "Resumo"
)

func titleProperty(content string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}

func richTextProperty(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{
					Content: content,
				},
			},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(domain.Day(t))
	return notionapi.DateProperty{
		Date: &notionapi.DateObject{Start: &d},
	}
}

// PropertyToNotionProperties converts the report rows of one property to
// Notion properties. Executed columns are only set when an executed row exists.
func PropertyToNotionProperties(name string, rows []engine.PropertySummary) notionapi.Properties {
	props := notionapi.Properties{
		TitleColumn: titleProperty(name),
	}

	var projected, executed *engine.PropertySummary
	for i := range rows {
		switch rows[i].Cenario {
		case domain.Projetado:
			projected = &rows[i]
		case domain.Executado:
			executed = &rows[i]
		}
	}
	base := projected
	if base == nil {
		base = executed
	}
	if base == nil {
		return props
	}

	meta := base.Metadata
	props[StatusColumn] = notionapi.SelectProperty{
		Select: notionapi.Option{Name: string(base.Status)},
	}
	if meta.Estado != "" {
		props[EstadoColumn] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: meta.Estado},
		}
	}
	if meta.Cidade != "" {
		props[CidadeColumn] = richTextProperty(meta.Cidade)
	}
	props[TipoCompraColumn] = notionapi.SelectProperty{
		Select: notionapi.Option{Name: string(meta.TipoCompra)},
	}
	props[CotistasColumn] = notionapi.NumberProperty{Number: float64(meta.NumCotistas)}
	if !meta.DataCompra.IsZero() {
		props[DataCompraColumn] = dateProperty(meta.DataCompra)
	}
	if meta.DataVenda != nil && !meta.DataVenda.IsZero() {
		props[DataVendaColumn] = dateProperty(*meta.DataVenda)
	}

	resumo := ""
	if projected != nil {
		props[LucroProjetadoColumn] = notionapi.NumberProperty{Number: projected.Summary.LucroTotal}
		props[RoiProjetadoColumn] = notionapi.NumberProperty{Number: projected.Summary.RoiTotal}
		resumo = "Projetado: " + money.Format(projected.Summary.LucroTotal) +
			" (" + money.FormatPercent(projected.Summary.RoiMensal, 2) + " a.m.)"
	}
	if executed != nil {
		props[LucroExecutadoColumn] = notionapi.NumberProperty{Number: executed.Summary.LucroTotal}
		props[RoiExecutadoColumn] = notionapi.NumberProperty{Number: executed.Summary.RoiTotal}
		if resumo != "" {
			resumo += "; "
		}
		resumo += "Executado: " + money.Format(executed.Summary.LucroTotal) +
			" (" + money.FormatPercent(executed.Summary.RoiMensal, 2) + " a.m.)"
	}
	if resumo != "" {
		props[ResumoColumn] = richTextProperty(resumo)
	}
	return props
}

// extractImovel reads the property name from a page title. Returns empty
// string if not found.
func extractImovel(page notionapi.Page) string {
	prop, ok := page.Properties[TitleColumn]
	if !ok {
		return ""
	}
	var title []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		title = p.Title
	case notionapi.TitleProperty:
		title = p.Title
	}
	if len(title) == 0 {
		return ""
	}
	if title[0].PlainText != "" {
		return title[0].PlainText
	}
	if title[0].Text != nil {
		return title[0].Text.Content
	}
	return ""
}
