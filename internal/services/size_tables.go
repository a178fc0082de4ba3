/**
 * @description
 * Static UK -> US size conversion tables, per brand and per gender segment.
 * These are lookup tables, not formulas: brands deviate from any single linear
 * offset (Nike shifts a full step where adidas shifts a half step), so a
 * missing entry is a hard failure rather than a computed guess.
 */

package services

import (
	"github.com/soletrack-project/backend/internal/models"
)

// sizeTable maps a UK size to the provider-facing US size.
type sizeTable map[float64]float64

// Brand keys used by the conversion tables. Aliased brands (Jordan under
// Nike's chart, Yeezy under adidas') point at the same table.
const (
	brandNike       = "nike"
	brandAdidas     = "adidas"
	brandNewBalance = "new balance"
	brandAsics      = "asics"
	brandUnknown    = "unknown"
)

var nikeMen = sizeTable{
	3.5: 4.5, 4: 5, 4.5: 5.5, 5: 6, 5.5: 6.5,
	6: 7, 6.5: 7.5, 7: 8, 7.5: 8.5, 8: 9,
	8.5: 9.5, 9: 10, 9.5: 10.5, 10: 11, 10.5: 11.5,
	11: 12, 11.5: 12.5, 12: 13, 12.5: 13.5, 13: 14,
	14: 15,
}

var nikeWomen = sizeTable{
	2.5: 4, 3: 4.5, 3.5: 5, 4: 5.5, 4.5: 6,
	5: 6.5, 5.5: 7, 6: 7.5, 6.5: 8, 7: 8.5,
	7.5: 9, 8: 9.5, 8.5: 10, 9: 10.5, 9.5: 11,
	10: 11.5, 10.5: 12, 11: 12.5,
}

var nikeYouth = sizeTable{
	3: 3.5, 3.5: 4, 4: 4.5, 4.5: 5, 5: 5.5,
	5.5: 6, 6: 6.5, 6.5: 7,
}

var adidasMen = sizeTable{
	3.5: 4, 4: 4.5, 4.5: 5, 5: 5.5, 5.5: 6,
	6: 6.5, 6.5: 7, 7: 7.5, 7.5: 8, 8: 8.5,
	8.5: 9, 9: 9.5, 9.5: 10, 10: 10.5, 10.5: 11,
	11: 11.5, 11.5: 12, 12: 12.5, 12.5: 13, 13: 13.5,
	13.5: 14, 14: 14.5,
}

var adidasWomen = sizeTable{
	3: 4.5, 3.5: 5, 4: 5.5, 4.5: 6, 5: 6.5,
	5.5: 7, 6: 7.5, 6.5: 8, 7: 8.5, 7.5: 9,
	8: 9.5, 8.5: 10, 9: 10.5, 9.5: 11, 10: 11.5,
}

var adidasYouth = sizeTable{
	3: 3.5, 3.5: 4, 4: 4.5, 4.5: 5, 5: 5.5,
	5.5: 6, 6: 6.5,
}

var newBalanceMen = sizeTable{
	4: 4.5, 4.5: 5, 5: 5.5, 5.5: 6, 6: 6.5,
	6.5: 7, 7: 7.5, 7.5: 8, 8: 8.5, 8.5: 9,
	9: 9.5, 9.5: 10, 10: 10.5, 10.5: 11, 11: 11.5,
	11.5: 12, 12: 12.5, 12.5: 13, 13: 13.5, 14: 14.5,
}

var newBalanceWomen = sizeTable{
	3: 5, 3.5: 5.5, 4: 6, 4.5: 6.5, 5: 7,
	5.5: 7.5, 6: 8, 6.5: 8.5, 7: 9, 7.5: 9.5,
	8: 10, 8.5: 10.5, 9: 11, 9.5: 11.5, 10: 12,
}

var asicsMen = sizeTable{
	4: 5, 4.5: 5.5, 5: 6, 5.5: 6.5, 6: 7,
	6.5: 7.5, 7: 8, 7.5: 8.5, 8: 9, 8.5: 9.5,
	9: 10, 9.5: 10.5, 10: 11, 10.5: 11.5, 11: 12,
	11.5: 12.5, 12: 13, 13: 14,
}

var asicsWomen = sizeTable{
	3: 5, 3.5: 5.5, 4: 6, 4.5: 6.5, 5: 7,
	5.5: 7.5, 6: 8, 6.5: 8.5, 7: 9, 7.5: 9.5,
	8: 10, 8.5: 10.5, 9: 11, 9.5: 11.5, 10: 12,
}

// conversionTables holds every documented brand/gender chart. Gaps are gaps:
// lookup failures surface as ErrNoSizeMatch, never as an interpolated size.
var conversionTables = map[string]map[string]sizeTable{
	brandNike: {
		models.GenderMen:   nikeMen,
		models.GenderWomen: nikeWomen,
		models.GenderYouth: nikeYouth,
	},
	brandAdidas: {
		models.GenderMen:   adidasMen,
		models.GenderWomen: adidasWomen,
		models.GenderYouth: adidasYouth,
	},
	brandNewBalance: {
		models.GenderMen:   newBalanceMen,
		models.GenderWomen: newBalanceWomen,
	},
	brandAsics: {
		models.GenderMen:   asicsMen,
		models.GenderWomen: asicsWomen,
	},
}

// brandLiterals maps known brand/title prefixes to a conversion table key.
// Matching picks the longest literal that prefixes the normalized title, so
// "air jordan" beats "air" and "new balance" beats nothing.
var brandLiterals = map[string]string{
	"nike":         brandNike,
	"air jordan":   brandNike,
	"jordan":       brandNike,
	"adidas":       brandAdidas,
	"adidas yeezy": brandAdidas,
	"yeezy":        brandAdidas,
	"new balance":  brandNewBalance,
	"asics":        brandAsics,
	"asics gel":    brandAsics,
}
