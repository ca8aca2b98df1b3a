package imagegen

import (
	"strings"
	"testing"

	"adgen/internal/domain"
)

func TestBuildInstruction(t *testing.T) {
	info := domain.ProductInfo{
		Name:          "Widget Deluxe",
		Description:   "The finest widget money can buy",
		Price:         "$9.99",
		OriginalPrice: "$19.99",
		Offer:         "50% off",
		Phone:         "+1-555-0100",
		Location:      "Springfield",
	}

	got := BuildInstruction(info)

	checks := []string{
		`"Widget Deluxe"`,
		"The finest widget money can buy",
		"price $9.99",
		"$19.99 struck through",
		`"50% off"`,
		"Springfield",
		"+1-555-0100",
		"no watermarks",
	}
	for _, expect := range checks {
		if !strings.Contains(got, expect) {
			t.Fatalf("instruction missing %q: %s", expect, got)
		}
	}
}

func TestBuildInstructionEmptyInfo(t *testing.T) {
	got := BuildInstruction(domain.ProductInfo{})
	if !strings.Contains(got, "advertising image") {
		t.Fatalf("unexpected instruction: %s", got)
	}
	if strings.Contains(got, "Overlay the price") || strings.Contains(got, "badge") {
		t.Fatalf("instruction mentions absent fields: %s", got)
	}
}

func TestOverlayText(t *testing.T) {
	tests := []struct {
		name string
		info domain.ProductInfo
		want string
	}{
		{
			name: "all fields",
			info: domain.ProductInfo{Name: "Widget", Offer: "50% off", Price: "$9.99"},
			want: "Widget | 50% off | $9.99",
		},
		{
			name: "name only",
			info: domain.ProductInfo{Name: "Widget"},
			want: "Widget",
		},
		{
			name: "empty",
			info: domain.ProductInfo{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlayText(tt.info); got != tt.want {
				t.Fatalf("OverlayText = %q, want %q", got, tt.want)
			}
		})
	}
}
