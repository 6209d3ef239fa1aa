package tenant

import (
	"testing"
	"time"
)

func TestRefreshMarkerFormat(t *testing.T) {
	tn := Tenant{RefreshedAt: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)}
	if got := tn.RefreshMarker(); got != "Mon, 02 Mar 2026 10:30:00 GMT" {
		t.Fatalf("unexpected marker: %q", got)
	}
}

func TestRefreshMarkerZeroTime(t *testing.T) {
	var tn Tenant
	if got := tn.RefreshMarker(); got != "" {
		t.Fatalf("expected empty marker, got %q", got)
	}
}

func TestRefreshMarkerNormalizesZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	utc := Tenant{RefreshedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	local := Tenant{RefreshedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, loc)}
	if utc.RefreshMarker() != local.RefreshMarker() {
		t.Fatal("markers for the same instant must match")
	}
}

func TestAliasLookups(t *testing.T) {
	tn := Tenant{
		ID:   "t1",
		Name: "acme",
		Metadata: Metadata{
			PreviousTenantNames: []PreviousTenant{
				{ID: "t0", Name: "oldacme", AuthToken: "old-token"},
			},
		},
	}

	if !tn.HasAliasName("oldacme") {
		t.Fatal("expected alias name match")
	}
	if !tn.HasAliasName("OldAcme") {
		t.Fatal("expected alias match to ignore host casing")
	}
	if tn.HasAliasName("acme") {
		t.Fatal("canonical name is not an alias")
	}

	prev, ok := tn.AliasByID("t0")
	if !ok || prev.Name != "oldacme" {
		t.Fatalf("unexpected alias: %+v", prev)
	}
	if _, ok := tn.AliasByID("t1"); ok {
		t.Fatal("live id is not an alias")
	}
}

func TestIsAdmin(t *testing.T) {
	if !Admin.IsAdmin() {
		t.Fatal("reserved tenant must be admin")
	}
	tn := Tenant{ID: "t1", Name: "acme"}
	if tn.IsAdmin() {
		t.Fatal("regular tenant must not be admin")
	}
}
