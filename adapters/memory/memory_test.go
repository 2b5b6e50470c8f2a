package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/revmura/revmura-suite/adapters/memory"
	"github.com/revmura/revmura-suite/domain/schema"
)

func TestConfigStore_LoadMissingKeepsDefault(t *testing.T) {
	store := memory.NewConfigStore()

	ids := []string{"default"}
	found, err := store.Load(context.Background(), "modules.enabled", &ids)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
	if len(ids) != 1 || ids[0] != "default" {
		t.Errorf("default overwritten: %v", ids)
	}
}

func TestConfigStore_SaveAndLoadNested(t *testing.T) {
	store := memory.NewConfigStore()
	ctx := context.Background()

	in := map[string]any{"hello": "0.1.0", "nested": map[string]any{"list": []any{"a", "b"}}}
	if err := store.Save(ctx, "k", in); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	var out map[string]any
	found, err := store.Load(ctx, "k", &out)
	if err != nil || !found {
		t.Fatalf("Load = %v, %v", found, err)
	}
	nested := out["nested"].(map[string]any)
	if len(nested["list"].([]any)) != 2 {
		t.Errorf("nested = %v", nested)
	}
	if store.Saves("k") != 1 {
		t.Errorf("Saves = %d", store.Saves("k"))
	}
}

func TestConfigStore_ListAndDelete(t *testing.T) {
	store := memory.NewConfigStore()
	ctx := context.Background()
	store.Save(ctx, "b", 2)
	store.Save(ctx, "a", 1)

	list, _ := store.List(ctx)
	if len(list) != 2 || list[0].Key != "a" || list[1].Value != "2" {
		t.Errorf("List = %+v", list)
	}

	store.Delete(ctx, "a")
	if _, ok := store.Raw("a"); ok {
		t.Error("a should be deleted")
	}
}

func TestConfigStore_FailSaves(t *testing.T) {
	store := memory.NewConfigStore()
	boom := errors.New("disk full")
	store.FailSaves(boom)

	if err := store.Save(context.Background(), "k", 1); !errors.Is(err, boom) {
		t.Errorf("Save err = %v", err)
	}
	store.FailSaves(nil)
	if err := store.Save(context.Background(), "k", 1); err != nil {
		t.Errorf("Save err = %v", err)
	}
}

func TestEntityRegistry_Types(t *testing.T) {
	reg := memory.NewEntityRegistry()
	ctx := context.Background()

	reg.RegisterSecondary(ctx, "offer_cat", []string{"offer"}, schema.Secondary{Slug: "offer_cat", Label: "Cats", Rewrite: schema.Rewrite{Slug: "offer-cat"}})
	reg.RegisterPrimary(ctx, "offer", schema.Primary{Label: "Offers", Rewrite: schema.Rewrite{Slug: "offers"}})
	reg.RegisterPrimary(ctx, "offer", schema.Primary{Label: "Offers v2", Rewrite: schema.Rewrite{Slug: "offers"}})

	types := reg.Types()
	if len(types) != 2 {
		t.Fatalf("Types = %+v", types)
	}
	if types[0].Kind != "primary" || types[0].Label != "Offers v2" {
		t.Errorf("types[0] = %+v", types[0])
	}
	if types[1].RewriteSlug != "offer-cat" || types[1].ObjectTypes[0] != "offer" {
		t.Errorf("types[1] = %+v", types[1])
	}
	if reg.Calls() != 3 {
		t.Errorf("Calls = %d", reg.Calls())
	}
}

func TestEventLog_Named(t *testing.T) {
	log := memory.NewEventLog()
	ctx := context.Background()
	log.Emit(ctx, "a", nil)
	log.Emit(ctx, "b", map[string]any{"x": 1})
	log.Emit(ctx, "a", nil)

	if n := len(log.Named("a")); n != 2 {
		t.Errorf("Named(a) = %d", n)
	}
	if n := len(log.All()); n != 3 {
		t.Errorf("All = %d", n)
	}
}

func TestRewriteTable_RefreshAndMatch(t *testing.T) {
	ctx := context.Background()
	entities := memory.NewEntityRegistry()
	table := memory.NewRewriteTable(entities)

	_ = entities.RegisterPrimary(ctx, "offer", schema.Primary{Label: "Offers", Rewrite: schema.Rewrite{Slug: "offers"}})
	_ = entities.RegisterPrimary(ctx, "offer_archive", schema.Primary{Rewrite: schema.Rewrite{Slug: "offers/archive"}})
	_ = entities.RegisterSecondary(ctx, "offer_cat", []string{"offer"}, schema.Secondary{Slug: "offer_cat", Rewrite: schema.Rewrite{Slug: "offer-category"}})

	if _, ok := table.Match("/offers"); ok {
		t.Fatal("table should be empty before a refresh")
	}

	if err := table.RefreshRoutes(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		slug string
		ok   bool
	}{
		{"/offers", "offer", true},
		{"/offers/summer-sale", "offer", true},
		{"/offers/archive/2025", "offer_archive", true},
		{"/offer-category/food", "offer_cat", true},
		{"/offersx", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		r, ok := table.Match(tt.path)
		if ok != tt.ok || r.Slug != tt.slug {
			t.Errorf("Match(%s) = %+v, %v; want %s, %v", tt.path, r, ok, tt.slug, tt.ok)
		}
	}

	if len(table.Rules()) != 3 || table.Flushes() != 1 {
		t.Errorf("rules = %v, flushes = %d", table.Rules(), table.Flushes())
	}
}
