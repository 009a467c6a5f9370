// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package validation

import (
	"strings"
	"testing"
)

type cartRequest struct {
	CartItemIDs []string `validate:"required,min=1,max=3,dive,itemid"`
	CustomerID  string   `validate:"omitempty,itemid"`
	Limit       int      `validate:"gte=0,lte=100"`
	Mode        string   `validate:"omitempty,oneof=rules collaborative"`
}

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     cartRequest
		wantField string
		wantTag   string
	}{
		{
			name:  "valid",
			input: cartRequest{CartItemIDs: []string{"biryani", "raita"}, CustomerID: "cust-1", Limit: 10},
		},
		{
			name:  "valid without customer",
			input: cartRequest{CartItemIDs: []string{"biryani"}},
		},
		{
			name:      "missing cart",
			input:     cartRequest{},
			wantField: "CartItemIDs",
			wantTag:   "required",
		},
		{
			name:      "cart too large",
			input:     cartRequest{CartItemIDs: []string{"a", "b", "c", "d"}},
			wantField: "CartItemIDs",
			wantTag:   "max",
		},
		{
			name:      "item with comma",
			input:     cartRequest{CartItemIDs: []string{"a,b"}},
			wantField: "CartItemIDs[0]",
			wantTag:   "itemid",
		},
		{
			name:      "blank customer",
			input:     cartRequest{CartItemIDs: []string{"a"}, CustomerID: " "},
			wantField: "CustomerID",
			wantTag:   "itemid",
		},
		{
			name:      "limit too high",
			input:     cartRequest{CartItemIDs: []string{"a"}, Limit: 500},
			wantField: "Limit",
			wantTag:   "lte",
		},
		{
			name:      "unknown mode",
			input:     cartRequest{CartItemIDs: []string{"a"}, Mode: "magic"},
			wantField: "Mode",
			wantTag:   "oneof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			found := false
			for _, e := range err.Errors() {
				if e.Field() == tt.wantField && e.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on %s with tag %s, got %v", tt.wantField, tt.wantTag, err.Errors())
			}
		})
	}
}

func TestIsValidItemID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"biryani", true},
		{"item-42", true},
		{"Gulab Jamun", true},
		{"", false},
		{" padded", false},
		{"a,b", false},
		{"nul\x00byte", false},
		{strings.Repeat("x", MaxItemIDLength), true},
		{strings.Repeat("x", MaxItemIDLength+1), false},
	}
	for _, tt := range tests {
		if got := IsValidItemID(tt.id); got != tt.want {
			t.Errorf("IsValidItemID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidateItemIDs(t *testing.T) {
	if err := ValidateItemIDs("items", []string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateItemIDs("items", []string{"a", ""})
	if err == nil {
		t.Fatal("expected error for empty identifier")
	}
	if errs := err.Errors(); len(errs) != 1 || errs[0].Field() != "items" || errs[0].Tag() != "itemid" {
		t.Errorf("Errors() = %v", errs)
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := ValidateStruct(&cartRequest{})
		if err == nil {
			t.Fatal("expected validation error")
		}
		apiErr := err.ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %s", apiErr.Code)
		}
		if apiErr.Message != "CartItemIDs is required" {
			t.Errorf("Message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "CartItemIDs" {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := ValidateStruct(&cartRequest{Limit: -1, Mode: "x"})
		if err == nil {
			t.Fatal("expected validation error")
		}
		apiErr := err.ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 3 {
			t.Fatalf("Details[fields] = %v", apiErr.Details["fields"])
		}
		if !strings.Contains(apiErr.Message, "Limit: Limit must be greater than or equal to 0") {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestTranslateMinMax(t *testing.T) {
	err := ValidateStruct(&cartRequest{CartItemIDs: []string{"a", "b", "c", "d"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if msg := err.Error(); msg != "CartItemIDs must be at most 3 items" {
		t.Errorf("Error() = %q", msg)
	}
}
