package model

// PrizeKind selects how a prize is awarded.
type PrizeKind string

const (
    PrizeRandom         PrizeKind = "random"
    PrizeSpecificNumber PrizeKind = "specific_number"
)

// RandomPrizeProbability is the chance that an eligible check awards one of
// the active random prizes.
const RandomPrizeProbability = 0.05

// Prize is one promotion entry of a day.
//
// Fields:
//  ID             – stable identifier, assigned on save when empty.
//  Message        – text shown to the winner.
//  Kind           – random or specific_number.
//  SpecificNumber – winning ticket number for specific_number prizes.
//  Active         – inactive prizes are never awarded.
//  Order          – display order, normalised to 1..n on save.
type Prize struct {
    ID             string    `json:"id"`
    Message        string    `json:"message"`
    Kind           PrizeKind `json:"kind"`
    SpecificNumber *int      `json:"specificNumber,omitempty"`
    Active         bool      `json:"active"`
    Order          int       `json:"order"`
}

// PrizeConfig is the per-day prize setup plus the numbers that already won.
type PrizeConfig struct {
    Date           string  `json:"date"`
    Prizes         []Prize `json:"prizes"`
    WinningNumbers []int   `json:"winningNumbers"`
}

// HasWinner reports whether number already won today.
func (c PrizeConfig) HasWinner(number int) bool {
    for _, n := range c.WinningNumbers {
        if n == number {
            return true
        }
    }
    return false
}

// PrizeResult is the outcome of a prize check.
type PrizeResult struct {
    Won   bool   `json:"won"`
    Prize *Prize `json:"prize,omitempty"`
}

// PrizeStats summarises a day's prize configuration.
type PrizeStats struct {
    Date           string `json:"date"`
    TotalPrizes    int    `json:"totalPrizes"`
    ActivePrizes   int    `json:"activePrizes"`
    RandomPrizes   int    `json:"randomPrizes"`
    SpecificPrizes int    `json:"specificPrizes"`
    WinnersCount   int    `json:"winnersCount"`
    WinningNumbers []int  `json:"winningNumbers"`
}
