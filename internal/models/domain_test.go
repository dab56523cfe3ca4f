package models

import "testing"

func TestParseDocumentState(t *testing.T) {
	cases := []struct {
		in      string
		want    DocumentState
		wantErr bool
	}{
		{"registered", DocumentStateRegistered, false},
		{" In_Process ", DocumentStateInProcess, false},
		{"ARCHIVED", DocumentStateArchived, false},
		{"loaned", DocumentStateLoaned, false},
		{"", "", true},
		{"deleted", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDocumentState(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDocumentState(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDocumentState(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDocumentState(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseContainerState(t *testing.T) {
	if _, err := ParseContainerState("open"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ParseContainerState("In_Custody"); err != nil {
		t.Fatalf("in_custody: %v", err)
	}
	if _, err := ParseContainerState("sealed"); err == nil {
		t.Fatal("expected error for invalid state")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ContainerState
		want     bool
	}{
		{ContainerStateOpen, ContainerStateInCustody, true},
		{ContainerStateOpen, ContainerStateClosed, true},
		{ContainerStateClosed, ContainerStateOpen, true},
		{ContainerStateClosed, ContainerStateInCustody, true},
		{ContainerStateInCustody, ContainerStateOpen, false},
		{ContainerStateInCustody, ContainerStateClosed, false},
		{ContainerStateOpen, ContainerStateOpen, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestDocumentHasBlob(t *testing.T) {
	d := &Document{}
	if d.HasBlob() {
		t.Fatal("empty document should not report a blob")
	}
	d.BlobDigest = "ab"
	if !d.HasBlob() {
		t.Fatal("document with digest should report a blob")
	}
	var nilDoc *Document
	if nilDoc.HasBlob() {
		t.Fatal("nil document should not report a blob")
	}
}
