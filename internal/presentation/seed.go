package presentation

import "github.com/joeconsedine/claude-maze/internal/domain"

// SeedSlides returns the built-in demo deck used when no slide store is
// configured.
func SeedSlides() []domain.Slide {
	return []domain.Slide{
		{
			ID:        "line_chart",
			Title:     "Line Chart",
			ChartType: domain.ChartLine,
			Data: map[string]any{
				"xAxis":  []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
				"series": []int{820, 932, 901, 934, 1290, 1330, 1320},
			},
		},
		{
			ID:        "bar_chart",
			Title:     "Bar Chart",
			ChartType: domain.ChartBar,
			Data: map[string]any{
				"xAxis":  []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"},
				"series": []int{120, 200, 150, 80, 70, 110},
			},
		},
		{
			ID:        "pie_chart",
			Title:     "Pie Chart",
			ChartType: domain.ChartPie,
			Data: []map[string]any{
				{"value": 1048, "name": "Search Engine"},
				{"value": 735, "name": "Direct"},
				{"value": 580, "name": "Email"},
				{"value": 484, "name": "Union Ads"},
				{"value": 300, "name": "Video Ads"},
			},
		},
		{
			ID:        "scatter_chart",
			Title:     "Scatter Plot",
			ChartType: domain.ChartScatter,
			Data: [][]float64{
				{10.0, 8.04}, {8.0, 6.95}, {13.0, 7.58}, {9.0, 8.81},
				{11.0, 8.33}, {14.0, 9.96}, {6.0, 7.24}, {4.0, 4.26},
			},
		},
	}
}
