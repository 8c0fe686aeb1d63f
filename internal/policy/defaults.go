package policy

// Built-in policy values. These mirror the payer's illustrative rule set
// (99213 at 20%, 97110 at 25%, 15% otherwise) and are expected to be
// replaced by a real policy file in production.
const (
	defaultDiscountBPS    = 1500
	defaultExcessiveCents = 500_000 // $5,000
	defaultMinRepriced    = 500     // $5 floor after discounting
)

// officeVisitSpecialties are the specialties that typically bill
// office-visit E/M codes.
var officeVisitSpecialties = []string{
	"internal medicine",
	"family medicine",
	"pediatrics",
	"cardiology",
	"neurology",
	"psychiatry",
	"gastroenterology",
	"orthopedics",
}

// Default returns the built-in policy table.
func Default() *Table {
	return &Table{
		DefaultDiscountBPS:    defaultDiscountBPS,
		DefaultExcessiveCents: defaultExcessiveCents,
		MinRepricedCents:      defaultMinRepriced,
		codes: map[string]CodePolicy{
			"99201": {
				Description:     "Office visit, new patient, brief",
				BaseDiscountBPS: 1500,
				CeilingCents:    18_000,
				ExcessiveCents:  90_000,
				Specialties:     officeVisitSpecialties,
			},
			"99202": {
				Description:     "Office visit, new patient",
				BaseDiscountBPS: 1500,
				CeilingCents:    25_000,
				ExcessiveCents:  125_000,
				Specialties:     officeVisitSpecialties,
			},
			"99203": {
				Description:     "Office visit, new patient, detailed",
				BaseDiscountBPS: 1500,
				CeilingCents:    30_000,
				ExcessiveCents:  150_000,
				Specialties:     officeVisitSpecialties,
			},
			"99204": {
				Description:     "Office visit, new patient, comprehensive",
				BaseDiscountBPS: 1600,
				CeilingCents:    45_000,
				ExcessiveCents:  225_000,
				Specialties:     officeVisitSpecialties,
			},
			"99205": {
				Description:     "Office visit, new patient, high complexity",
				BaseDiscountBPS: 1600,
				CeilingCents:    50_000,
				ExcessiveCents:  250_000,
				Specialties:     officeVisitSpecialties,
			},
			"99212": {
				Description:     "Office visit, established patient, brief",
				BaseDiscountBPS: 1800,
				CeilingCents:    20_000,
				ExcessiveCents:  100_000,
				MinAge:          18,
				Specialties:     officeVisitSpecialties,
			},
			"99213": {
				Description:     "Office visit, established patient",
				BaseDiscountBPS: 2000,
				SpecialtyAdjustBPS: map[string]int32{
					"internal medicine": 200,
					"family medicine":   200,
				},
				CeilingCents:   30_000,
				ExcessiveCents: 150_000,
				MinAge:         18,
				Specialties:    officeVisitSpecialties,
			},
			"99214": {
				Description:     "Office visit, established patient, detailed",
				BaseDiscountBPS: 2000,
				SpecialtyAdjustBPS: map[string]int32{
					"internal medicine": 200,
					"family medicine":   200,
				},
				CeilingCents:   40_000,
				ExcessiveCents: 200_000,
				MinAge:         18,
				Specialties:    officeVisitSpecialties,
			},
			"99215": {
				Description:     "Office visit, established patient, comprehensive",
				BaseDiscountBPS: 1800,
				CeilingCents:    60_000,
				ExcessiveCents:  300_000,
				MinAge:          18,
				Specialties:     officeVisitSpecialties,
			},
			"97110": {
				Description:     "Therapeutic exercise",
				BaseDiscountBPS: 2500,
				SpecialtyAdjustBPS: map[string]int32{
					"orthopedics": 300,
				},
				CeilingCents:   15_000,
				ExcessiveCents: 75_000,
				Specialties:    []string{"physical therapy", "orthopedics", "sports medicine"},
			},
			"99392": {
				Description:     "Preventive visit, early childhood",
				BaseDiscountBPS: 1500,
				CeilingCents:    22_000,
				ExcessiveCents:  110_000,
				MaxAge:          11,
				Specialties:     []string{"pediatrics", "family medicine"},
			},
		},
	}
}
