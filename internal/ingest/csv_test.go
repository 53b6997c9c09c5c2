package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `name,main_category,sub_category,image,link,ratings,no_of_ratings,discount_price,actual_price
boAt Rockerz 450,appliances,audio,https://img.example.com/1.jpg,https://www.amazon.in/dp/1,4.1,"78,642","₹1,499","₹3,990"
nan,appliances,audio,,,,,,
Lloyd 1.5 Ton AC,appliances,air conditioners,not-a-url,https://www.amazon.in/dp/3,Get,,"₹32,999","₹58,990"
Bare Minimum,,,,,,,,
`

func TestLoadParsesRows(t *testing.T) {
	products, err := Load(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)
	require.Len(t, products, 3, "the nan row is dropped")

	boat := products[0]
	assert.Equal(t, 1, boat.ID)
	assert.Equal(t, "boAt Rockerz 450", boat.Name)
	require.NotNil(t, boat.MainCategory)
	assert.Equal(t, "appliances", *boat.MainCategory)
	require.NotNil(t, boat.Ratings)
	assert.Equal(t, 4.1, *boat.Ratings)
	require.NotNil(t, boat.NoOfRatings)
	assert.Equal(t, 78642, *boat.NoOfRatings)
	require.NotNil(t, boat.Image)
	require.NotNil(t, boat.Link)
}

func TestLoadConvertsRupeesToUSD(t *testing.T) {
	products, err := Load(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	boat := products[0]
	require.NotNil(t, boat.DiscountPrice)
	assert.InDelta(t, 1499*rupeeToUSD, *boat.DiscountPrice, 1e-9)
	require.NotNil(t, boat.ActualPrice)
	assert.InDelta(t, 3990*rupeeToUSD, *boat.ActualPrice, 1e-9)
}

func TestLoadDropsJunkFields(t *testing.T) {
	products, err := Load(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	lloyd := products[1]
	assert.Equal(t, "Lloyd 1.5 Ton AC", lloyd.Name)
	assert.Nil(t, lloyd.Ratings, "non-numeric rating is dropped")
	assert.Nil(t, lloyd.NoOfRatings)
	assert.Nil(t, lloyd.Image, "invalid URL is dropped")
	require.NotNil(t, lloyd.Link)

	bare := products[2]
	assert.Nil(t, bare.MainCategory)
	assert.Nil(t, bare.DiscountPrice)
}

func TestLoadIDsFollowRowOrder(t *testing.T) {
	products, err := Load(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	// Row two is skipped but still consumes its id, so re-ingesting a
	// cleaned copy of the file keeps ids stable.
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, 3, products[1].ID)
	assert.Equal(t, 4, products[2].ID)
}

func TestLoadHonorsLimit(t *testing.T) {
	products, err := Load(strings.NewReader(sampleCSV), 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "boAt Rockerz 450", products[0].Name)
}

func TestLoadRejectsMissingNameColumn(t *testing.T) {
	_, err := Load(strings.NewReader("title,price\nfoo,1\n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}
