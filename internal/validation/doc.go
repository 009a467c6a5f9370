// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

/*
Package validation provides struct validation using go-playground/validator v10.

A single validator instance is created lazily and shared by every caller, so
struct metadata is parsed once. The custom "itemid" tag accepts identifiers
that are safe to use in cache keys: non-empty, at most MaxItemIDLength bytes,
no surrounding whitespace, and no commas or NUL bytes.

Usage:

	type CartRequest struct {
	    CartItemIDs []string `validate:"required,min=1,max=50,dive,itemid"`
	    Limit       int      `validate:"gte=0,lte=100"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
	    return
	}

Errors are translated into short human-readable messages and can be
converted to the API's VALIDATION_ERROR envelope with ToAPIError.
*/
package validation
