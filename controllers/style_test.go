package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"tryonapi/models"
	"tryonapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleAdviceOk(t *testing.T) {
	s := newTestServer(test.SuccessOutcome(resultImage), 1)
	s.advisor.Recommendation = models.StyleRecommendation{
		Analysis:    "Navy cotton polo",
		StylingTips: []string{"Pair with chinos"},
		ComplementaryItems: []models.ComplementaryItem{{
			Category:      "Chinos",
			Description:   "Beige chinos",
			ShoppingLinks: []models.ShoppingLink{{Store: "Myntra", URL: "https://www.myntra.com/search?q=beige+chinos"}},
		}},
	}

	rec := s.do(test.NewJSONRequest("POST", "/style/advice", StyleAdviceIn{GarmentImage: garmentURI}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.StyleRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, s.advisor.Recommendation, response)
	require.Len(t, s.advisor.Garments, 1)
	assert.Equal(t, "image/png", s.advisor.Garments[0].MIMEType)
}

func TestStyleAdviceNeutralIsStillOk(t *testing.T) {
	s := newTestServer(test.SuccessOutcome(resultImage), 1)

	rec := s.do(test.NewJSONRequest("POST", "/style/advice", StyleAdviceIn{GarmentImage: garmentURI}))

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, models.UnableToAnalyze, response["analysis"])
	assert.Equal(t, []any{}, response["stylingTips"])
	assert.Equal(t, []any{}, response["complementaryItems"])
}

func TestStyleAdviceInvalidBody(t *testing.T) {
	s := newTestServer(test.SuccessOutcome(resultImage), 1)

	assert.Equal(t, http.StatusBadRequest, s.do(test.NewJSONRequest("POST", "/style/advice", StyleAdviceIn{})).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(test.NewJSONRequest("POST", "/style/advice", StyleAdviceIn{GarmentImage: "%%%"})).Code)
	assert.Empty(t, s.advisor.Garments)
}
