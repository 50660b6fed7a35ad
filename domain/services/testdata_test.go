package services

import (
	"chatter/domain/core/entities"
	"chatter/domain/core/valueobjects"
)

var (
	harryPotter = valueobjects.MustPreferenceKey("HarryPotter", valueobjects.CategoryBooks)
	endersGame  = valueobjects.MustPreferenceKey("EndersGame", valueobjects.CategoryBooks)
	sevenSuns   = valueobjects.MustPreferenceKey("SevenSuns", valueobjects.CategoryBooks)
	xenocide    = valueobjects.MustPreferenceKey("Xenocide", valueobjects.CategoryBooks)
)

// bookGraph returns the HarryPotter/EndersGame/SevenSuns/Xenocide fixture
func bookGraph() map[valueobjects.PreferenceKey]*entities.Preference {
	hp := entities.NewPreferenceWithPopularity(harryPotter, 100)
	hp.SetCorrelation(endersGame, 10)
	hp.SetCorrelation(sevenSuns, 1)
	hp.SetCorrelation(xenocide, 2)

	eg := entities.NewPreferenceWithPopularity(endersGame, 50)
	eg.SetCorrelation(harryPotter, 10)
	eg.SetCorrelation(sevenSuns, 5)
	eg.SetCorrelation(xenocide, 15)

	ss := entities.NewPreferenceWithPopularity(sevenSuns, 15)
	x := entities.NewPreferenceWithPopularity(xenocide, 20)

	return map[valueobjects.PreferenceKey]*entities.Preference{
		harryPotter: hp,
		endersGame:  eg,
		sevenSuns:   ss,
		xenocide:    x,
	}
}
