package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelierhq/atelier/internal/models"
)

// optionsFindPage builds Find options for a sorted, paginated window.
func optionsFindPage(page models.PageRequest, sort bson.D) *options.FindOptions {
	return options.Find().
		SetSort(sort).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
}
