package validator

import "testing"

func TestCheckCollectsFirstErrorPerKey(t *testing.T) {
	v := New()
	v.Check(false, "name", "must be provided")
	v.Check(false, "name", "second message is ignored")
	v.Check(true, "email", "never recorded")

	if v.Valid() {
		t.Fatal("expected validator to be invalid")
	}
	if got := v.Errors["name"]; got != "must be provided" {
		t.Fatalf("name error = %q", got)
	}
	if _, ok := v.Errors["email"]; ok {
		t.Fatal("passing check must not record an error")
	}
}

func TestEmailRX(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.org"}
	invalid := []string{"", "plainaddress", "@missinglocal.com", "user@"}

	for _, s := range valid {
		if !Matches(s, EmailRX) {
			t.Errorf("expected %q to match", s)
		}
	}
	for _, s := range invalid {
		if Matches(s, EmailRX) {
			t.Errorf("expected %q not to match", s)
		}
	}
}

func TestPermittedValue(t *testing.T) {
	if !PermittedValue("GUIDE", "TRAVELER", "GUIDE") {
		t.Fatal("GUIDE should be permitted")
	}
	if PermittedValue("ADMIN", "TRAVELER", "GUIDE") {
		t.Fatal("ADMIN should not be permitted")
	}
}
