// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

/*
Package decode converts loosely typed JSON into Kverna's typed models.

The killmail feed and the legacy subscriber document are not strict about
types: numbers arrive as strings, booleans as 0/1 or "true", and absent values
as null, "None" or "null". Decoding is driven by a coercion table keyed on the
destination kind rather than by per-field branches:

  - "none"/"null" strings (any case) are treated as null
  - null into a slice or map yields an empty collection, never nil
  - null into a pointer yields nil; null into a plain scalar keeps the
    current (possibly defaulted) value
  - numbers parse from JSON numbers or numeric strings
  - booleans accept true/false, "true"/"false" (any case) and 1/0
  - structs decode recursively by their json tag names

Types implementing Defaulter have Defaults called before their fields are
filled, and types implementing Normalizer have Normalize called after.

Every failure wraps ErrDecode and, for field-level problems, is a *FieldError
carrying the dotted path to the offending value:

	var km models.Killmail
	if err := decode.Decode(body, &km); err != nil {
	    var fe *decode.FieldError
	    if errors.As(err, &fe) {
	        logging.Warn().Str("field", fe.Path).Msg("bad killmail")
	    }
	}
*/
package decode
