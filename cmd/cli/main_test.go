package main

import (
	"flag"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/infra/bigquery"
	"github.com/google/subcommands"
)

func TestMetaCmd_OnlyGivenFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"estado and cotistas", []string{"-p", "Casa", "-estado", "RJ", "-cotistas", "3"}, false},
		{"bad date", []string{"-p", "Casa", "-estado", "RJ", "-cotistas", "3", "-compra", "01/02/2025"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &metaCmd{}
			f := flag.NewFlagSet("meta", flag.ContinueOnError)
			c.SetFlags(f)
			if err := f.Parse(tt.args); err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			u, err := c.update(f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("update error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if u.Estado == nil || *u.Estado != "RJ" || u.NumCotistas == nil || *u.NumCotistas != 3 {
				t.Errorf("Unexpected update %+v", u)
			}
			if u.Cidade != nil || u.TipoCompra != nil || u.DataCompra != nil || u.DataVenda != nil {
				t.Errorf("flags not given must stay nil: %+v", u)
			}
		})
	}
}

func TestMetaCmd_Dates(t *testing.T) {
	c := &metaCmd{}
	f := flag.NewFlagSet("meta", flag.ContinueOnError)
	c.SetFlags(f)
	_ = f.Parse([]string{"-p", "Casa", "-compra", "2025-02-01", "-tipo", "Financiado"})

	u, err := c.update(f)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if u.DataCompra == nil || !u.DataCompra.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DataCompra = %v", u.DataCompra)
	}
	if u.TipoCompra == nil || *u.TipoCompra != domain.Financiado {
		t.Errorf("TipoCompra = %v", u.TipoCompra)
	}
}

func TestHistoryMarkdown(t *testing.T) {
	rows := []*bigquery.SummaryRow{{
		Imovel:     "Casa",
		Cenario:    "Projetado",
		LucroTotal: big.NewRat(123450, 100),
		RoiTotal:   12.5,
		ExportedTS: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}}

	got := historyMarkdown("Casa", rows)
	if !strings.Contains(got, "| 01/03/2025 12:30 | Projetado | R$1.234,50 | 12,50% |") {
		t.Errorf("Unexpected history:\n%s", got)
	}
	if got := historyMarkdown("Casa", nil); !strings.Contains(got, "Nenhuma exportação") {
		t.Errorf("Unexpected empty history:\n%s", got)
	}
}

func TestLoadConfig_DefaultsToSQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.StoreDriver != config.DriverSQLite {
		t.Errorf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
}

func TestCommandNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	all := append(append(append([]subcommands.Command{}, propertyCommands...), editCommands...), exportCommands...)
	for _, c := range all {
		if seen[c.Name()] {
			t.Errorf("duplicate command %q", c.Name())
		}
		seen[c.Name()] = true
	}
	if len(seen) != 17 {
		t.Errorf("got %d commands, want 17", len(seen))
	}
}
