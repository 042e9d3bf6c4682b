package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/renderer"
	"github.com/google/subcommands"
)

var propertyCommands = []subcommands.Command{
	&listCmd{},
	&createCmd{},
	&showCmd{},
	&renameCmd{},
	&duplicateCmd{},
	&deleteCmd{},
	&statusCmd{},
	&reportCmd{},
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list properties grouped by status" }
func (*listCmd) Usage() string {
	return `cli list

  Lists every property, in progress first, then finished.
`
}
func (*listCmd) SetFlags(*flag.FlagSet) {}

func (*listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	list, err := rt.sess.Properties(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ListMarkdown(list, ""))
	return subcommands.ExitSuccess
}

type createCmd struct{}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create a new property with a unique default name" }
func (*createCmd) Usage() string {
	return `cli create

  Creates "Novo Imóvel" (or "Novo Imóvel 2", ...) and prints its name.
`
}
func (*createCmd) SetFlags(*flag.FlagSet) {}

func (*createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	name, err := rt.sess.Create(ctx)
	if err != nil {
		return fail(err)
	}
	fmt.Println(name)
	return subcommands.ExitSuccess
}

type showCmd struct {
	imovel  string
	cenario string
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show the fields and summary of a property" }
func (*showCmd) Usage() string {
	return `cli show -p <imovel> [-c Projetado|Executado]

  Renders every field of the property in the chosen scenario along with its
  profitability summary.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.imovel, "p", "", "Property name (defaults to the first property)")
	f.StringVar(&c.cenario, "c", string(domain.Projetado), "Scenario: Projetado or Executado")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, err := openRuntime(ctx, c.imovel, domain.Cenario(c.cenario))
	if err != nil {
		return fail(err)
	}
	defer rt.close()
	return rt.showActive(ctx)
}

type renameCmd struct{}

func (*renameCmd) Name() string     { return "rename" }
func (*renameCmd) Synopsis() string { return "rename a property" }
func (*renameCmd) Usage() string {
	return `cli rename <imovel> <new name>

  Renames the property on every entry. The new name must not be in use.
`
}
func (*renameCmd) SetFlags(*flag.FlagSet) {}

func (*renameCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "rename takes the current and the new name")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	if err := rt.sess.Rename(ctx, f.Arg(0), f.Arg(1)); err != nil {
		return fail(err)
	}
	fmt.Printf("Renamed %q to %q\n", f.Arg(0), f.Arg(1))
	return subcommands.ExitSuccess
}

type duplicateCmd struct{}

func (*duplicateCmd) Name() string     { return "duplicate" }
func (*duplicateCmd) Synopsis() string { return "copy a property under a new name" }
func (*duplicateCmd) Usage() string {
	return `cli duplicate <imovel>

  Copies every entry of the property, in both scenarios, and prints the name
  of the copy.
`
}
func (*duplicateCmd) SetFlags(*flag.FlagSet) {}

func (*duplicateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "duplicate takes one property name")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	name, err := rt.sess.Duplicate(ctx, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	fmt.Println(name)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	yes bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a property and all its entries" }
func (*deleteCmd) Usage() string {
	return `cli delete -yes <imovel>

  Deletes the property in both scenarios. There is no undo from the command
  line, so -yes is required.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm the deletion")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "delete takes one property name")
	}
	if !c.yes {
		return usageError(f, "refusing to delete without -yes")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	if err := rt.sess.Delete(ctx, f.Arg(0)); err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted %q\n", f.Arg(0))
	return subcommands.ExitSuccess
}

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "set or toggle the status of a property" }
func (*statusCmd) Usage() string {
	return `cli status <imovel> [em_andamento|finalizado]

  Without a status, toggles between in progress and finished.
`
}
func (*statusCmd) SetFlags(*flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		return usageError(f, "status takes a property name and an optional status")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	imovel := f.Arg(0)
	var status domain.StatusImovel
	if f.NArg() == 1 {
		status, err = rt.sess.ToggleStatus(ctx, imovel)
	} else {
		status = domain.StatusImovel(f.Arg(1))
		if status != domain.EmAndamento && status != domain.Finalizado {
			return usageError(f, fmt.Sprintf("unknown status %q", status))
		}
		err = rt.sess.SetStatus(ctx, imovel, status)
	}
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s: %s\n", imovel, status)
	return subcommands.ExitSuccess
}

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "summarize every property" }
func (*reportCmd) Usage() string {
	return `cli report

  Prints profit and returns of every property, per scenario.
`
}
func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (*reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	entries, err := rt.backends.Store.ListEntries(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ReportMarkdown(engine.Report(entries, time.Now())))
	return subcommands.ExitSuccess
}
