package main

import (
	"context"
	"testing"

	"github.com/angelmondragon/groupcart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/stretchr/testify/require"

	products "github.com/angelmondragon/groupcart-backend/internal/products"
)

// The catalog package is named product; the binary wires it the same way.
func TestProductServiceWiring(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Create(&models.Category{Name: "Pantry"}).Error)

	svc, err := products.NewService(products.NewRepository(conn))
	require.NoError(t, err)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, "Pantry", categories[0].Name)
}
