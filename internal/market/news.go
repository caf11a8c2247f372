package market

import "quant_terminal/internal/models"

// DefaultNews is the headline context used when no feed is configured
func DefaultNews() []models.NewsItem {
	return []models.NewsItem{
		{ID: "1", Headline: "NVDA battles for the top market cap spot on next-gen chip demand", Source: "Bloomberg", Time: "1m ago"},
		{ID: "2", Headline: "US economic data beats expectations, dollar buying dominates", Source: "CNBC", Time: "8m ago"},
		{ID: "3", Headline: "Bitcoin resumes its push toward $100k after a correction", Source: "Reuters", Time: "12m ago"},
	}
}
