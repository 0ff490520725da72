package whatsapp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+5491122334455": "+5491122334455",
		"+54 9 11 2233-4455":      "+5491122334455",
		"5491122334455":           "5491122334455",
		" whatsapp:5491122334455": "+5491122334455",
		"":                        "",
		"abc":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestChannelAddressAndRecipient(t *testing.T) {
	assert.Equal(t, "whatsapp:+5491122334455", ChannelAddress("5491122334455"))
	assert.Equal(t, "whatsapp:+5491122334455", ChannelAddress("whatsapp:+5491122334455"))
	assert.Equal(t, "5491122334455", CloudRecipient("whatsapp:+5491122334455"))
}

func TestPhoneVariants(t *testing.T) {
	got := PhoneVariants("whatsapp:+5491122334455")
	want := []string{"+5491122334455", "5491122334455", "whatsapp:+5491122334455"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("variants mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, PhoneVariants("   "))
}
