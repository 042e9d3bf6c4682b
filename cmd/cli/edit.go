package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/money"
	"github.com/google/subcommands"
)

var editCommands = []subcommands.Command{
	&setCmd{},
	&rateCmd{},
	&metaCmd{},
	&recomputeCmd{},
}

// target selects the property and scenario an edit applies to.
type target struct {
	imovel  string
	cenario string
}

func (t *target) setFlags(f *flag.FlagSet) {
	f.StringVar(&t.imovel, "p", "", "Property name (required)")
	f.StringVar(&t.cenario, "c", string(domain.Projetado), "Scenario: Projetado or Executado")
}

func (t *target) open(ctx context.Context, f *flag.FlagSet) (*runtime, context.Context, subcommands.ExitStatus) {
	if t.imovel == "" {
		return nil, ctx, usageError(f, "-p is required")
	}
	rt, ctx, err := openRuntime(ctx, t.imovel, domain.Cenario(t.cenario))
	if err != nil {
		return nil, ctx, fail(err)
	}
	return rt, ctx, subcommands.ExitSuccess
}

type setCmd struct {
	target
	monthly bool
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "set the value of a field and recompute derived fields" }
func (*setCmd) Usage() string {
	return `cli set -p <imovel> [-c Projetado|Executado] [-monthly] <campo> <valor>

  Stores a value typed as "R$ 1.234,56", "1234,56" or "1234.56". With
  -monthly the value of Prestação or Condomínio is a monthly amount and is
  stored as twelve times that. Unparsable values are stored as 0.
`
}

func (c *setCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.BoolVar(&c.monthly, "monthly", false, "The value is a monthly amount")
}

func (c *setCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "set takes a field name and a value")
	}
	rt, ctx, status := c.open(ctx, f)
	if rt == nil {
		return status
	}
	defer rt.close()

	field, valor := f.Arg(0), money.Parse(f.Arg(1))
	var err error
	if c.monthly {
		err = rt.sess.SetMonthlyValue(ctx, field, valor)
	} else {
		err = rt.sess.SetValue(ctx, field, valor)
	}
	if err != nil {
		return fail(err)
	}
	if engine.IsDerived(field) {
		fmt.Fprintf(os.Stderr, "%s is normally calculated; edits made by later commands will recalculate it\n", field)
	}
	return rt.showActive(ctx)
}

type rateCmd struct {
	target
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "apply a percentage rate to a property" }
func (*rateCmd) Usage() string {
	return `cli rate -p <imovel> [-c Projetado|Executado] <taxa> <percentual>

  Rates: itbi, entrada_financiado, ganho_capital, comissao_corretor,
  comissao_leiloeiro. The field driven by the rate is rewritten even if it was
  edited by hand.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *rateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "rate takes a rate name and a percentage")
	}
	kind, err := engine.ParseRateKind(f.Arg(0))
	if err != nil {
		return usageError(f, err.Error())
	}
	pct, err := strconv.ParseFloat(strings.Replace(f.Arg(1), ",", ".", 1), 64)
	if err != nil {
		return usageError(f, fmt.Sprintf("invalid percentage %q", f.Arg(1)))
	}

	rt, ctx, status := c.open(ctx, f)
	if rt == nil {
		return status
	}
	defer rt.close()

	if err := rt.sess.SetRate(ctx, kind, pct); err != nil {
		return fail(err)
	}
	return rt.showActive(ctx)
}

type metaCmd struct {
	target
	estado      string
	cidade      string
	tipoCompra  string
	vendido     string
	numCotistas int
	dataCompra  string
	dataVenda   string
}

func (*metaCmd) Name() string     { return "meta" }
func (*metaCmd) Synopsis() string { return "change the attributes of a property" }
func (*metaCmd) Usage() string {
	return `cli meta -p <imovel> [-estado UF] [-cidade nome] [-tipo "À Vista"|Financiado]
         [-vendido Sim|Não] [-cotistas n] [-compra AAAA-MM-DD] [-venda AAAA-MM-DD]

  Only the flags given are changed. Changing the purchase type discards manual
  overrides.
`
}

func (c *metaCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.estado, "estado", "", "State (UF)")
	f.StringVar(&c.cidade, "cidade", "", "City")
	f.StringVar(&c.tipoCompra, "tipo", "", "Purchase type")
	f.StringVar(&c.vendido, "vendido", "", "Sold flag")
	f.IntVar(&c.numCotistas, "cotistas", 1, "Number of quota holders")
	f.StringVar(&c.dataCompra, "compra", "", "Purchase date")
	f.StringVar(&c.dataVenda, "venda", "", "Sale date")
}

func parseDay(s string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want AAAA-MM-DD", s)
	}
	return &t, nil
}

// update builds the metadata change from the flags actually given.
func (c *metaCmd) update(f *flag.FlagSet) (engine.MetadataUpdate, error) {
	var u engine.MetadataUpdate
	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "estado":
			u.Estado = &c.estado
		case "cidade":
			u.Cidade = &c.cidade
		case "tipo":
			tipo := domain.TipoCompra(c.tipoCompra)
			u.TipoCompra = &tipo
		case "vendido":
			v := domain.Vendido(c.vendido)
			u.Vendido = &v
		case "cotistas":
			u.NumCotistas = &c.numCotistas
		case "compra":
			u.DataCompra, err = parseDay(c.dataCompra)
		case "venda":
			u.DataVenda, err = parseDay(c.dataVenda)
		}
	})
	return u, err
}

func (c *metaCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	u, err := c.update(f)
	if err != nil {
		return usageError(f, err.Error())
	}
	rt, ctx, status := c.open(ctx, f)
	if rt == nil {
		return status
	}
	defer rt.close()

	if err := rt.sess.SetMetadata(ctx, u); err != nil {
		return fail(err)
	}
	return rt.showActive(ctx)
}

type recomputeCmd struct {
	target
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "re-derive the calculated fields of a property" }
func (*recomputeCmd) Usage() string {
	return `cli recompute -p <imovel> [-c Projetado|Executado]

  Runs the derivation rules until no field changes and reports what was
  written.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, status := c.open(ctx, f)
	if rt == nil {
		return status
	}
	defer rt.close()

	res, err := rt.sess.Recompute(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("passes=%d writes=%d converged=%v\n", res.Passes, res.Writes, res.Converged)
	return subcommands.ExitSuccess
}
