package main

import "testing"

func TestListSessionsPairsWithPanes(t *testing.T) {
	app, fb, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	// A backend session nothing shows yet.
	if _, err := fb.Open("detached"); err != nil {
		t.Fatalf("fake open: %v", err)
	}

	infos := app.ListSessions()
	if len(infos) != 2 {
		t.Fatalf("sessions = %d, want 2", len(infos))
	}
	var shown, detached int
	for _, info := range infos {
		if info.TabID != "" {
			shown++
			if info.TabID != tab.ID {
				t.Fatalf("info = %+v, want tab %s", info, tab.ID)
			}
		} else {
			detached++
		}
	}
	if shown != 1 || detached != 1 {
		t.Fatalf("shown = %d detached = %d", shown, detached)
	}
}

func TestSetSessionLabelFlowsThroughReconciliation(t *testing.T) {
	app, fb, _ := newTestApp(t)
	tab, err := app.OpenSession("build")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	sessionID := tab.Layout.SessionID

	if err := app.SetSessionLabel(sessionID, "prod deploy"); err != nil {
		t.Fatalf("SetSessionLabel: %v", err)
	}
	labeled, _ := fb.Get(sessionID)
	app.applySessionUpdate(labeled)

	got := app.GetWorkspaceSnapshot().Tabs[0].Layout.Session
	if got.CustomLabel != "prod deploy" {
		t.Fatalf("pane session = %+v", got)
	}
	if got.DisplayName() != "prod deploy" {
		t.Fatalf("display name = %q", got.DisplayName())
	}

	if err := app.SetSessionLabel("ghost", "x"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
