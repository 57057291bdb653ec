package model

// Plan описывает тарифный план и его ежемесячную стоимость.
type Plan struct {
	Tier     Tier     `json:"tier"`
	Price    float64  `json:"price"`
	Features []string `json:"features"`
}

// Plans возвращает каталог тарифов в порядке убывания цены.
func Plans() []Plan {
	return []Plan{
		{
			Tier:     TierPremium,
			Price:    799,
			Features: []string{"Free delivery", "Priority support", "Exclusive deals", "No surge pricing"},
		},
		{
			Tier:     TierStandard,
			Price:    499,
			Features: []string{"Reduced delivery fees", "Basic support", "Some deals"},
		},
		{
			Tier:     TierBasic,
			Price:    0,
			Features: []string{"Standard delivery fees", "Email support"},
		},
	}
}

// PlanFor возвращает тариф по уровню подписки; для неизвестного уровня возвращается Basic.
func PlanFor(t Tier) Plan {
	plans := Plans()
	for _, p := range plans {
		if p.Tier == t {
			return p
		}
	}
	return plans[len(plans)-1]
}
