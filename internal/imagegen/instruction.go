package imagegen

import (
	"fmt"
	"strings"

	"adgen/internal/domain"
)

// BuildInstruction renders a synthesis prompt for an advertising image from
// scraped product metadata. Empty fields contribute nothing.
func BuildInstruction(info domain.ProductInfo) string {
	parts := []string{}
	name := strings.TrimSpace(info.Name)
	if name != "" {
		parts = append(parts, fmt.Sprintf("Create a polished advertising image for %q.", name))
	} else {
		parts = append(parts, "Create a polished advertising image for the product described below.")
	}
	if desc := strings.TrimSpace(info.Description); desc != "" {
		parts = append(parts, "Product description: "+desc+".")
	}
	price := strings.TrimSpace(info.Price)
	original := strings.TrimSpace(info.OriginalPrice)
	switch {
	case price != "" && original != "":
		parts = append(parts, fmt.Sprintf("Overlay the price %s prominently, with the original price %s struck through.", price, original))
	case price != "":
		parts = append(parts, fmt.Sprintf("Overlay the price %s prominently.", price))
	}
	if offer := strings.TrimSpace(info.Offer); offer != "" {
		parts = append(parts, fmt.Sprintf("Add a bold badge with the offer text %q.", offer))
	}
	if location := strings.TrimSpace(info.Location); location != "" {
		parts = append(parts, "Mention the location "+location+".")
	}
	if phone := strings.TrimSpace(info.Phone); phone != "" {
		parts = append(parts, "Include the contact number "+phone+".")
	}
	parts = append(parts, "Use clean high-contrast typography, keep the product as the focal point, no watermarks.")
	return strings.Join(parts, " ")
}

// OverlayText summarizes the text rendered onto the creative, carried on the
// job record for display alongside the finished image.
func OverlayText(info domain.ProductInfo) string {
	parts := []string{}
	if name := strings.TrimSpace(info.Name); name != "" {
		parts = append(parts, name)
	}
	if offer := strings.TrimSpace(info.Offer); offer != "" {
		parts = append(parts, offer)
	}
	if price := strings.TrimSpace(info.Price); price != "" {
		parts = append(parts, price)
	}
	return strings.Join(parts, " | ")
}
