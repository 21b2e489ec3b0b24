package dashboard

// Title and Intro head the dashboard page
const (
	Title = "Metro Interstate Traffic Volume Dashboard"
	Intro = "This interactive dashboard analyzes traffic volume patterns based on time and " +
		"weather conditions using the Metro Interstate Traffic dataset."
)

var insights = []string{
	"Traffic volume peaks during morning and evening rush hours.",
	"Weekday traffic is consistently higher than weekend traffic.",
	"Clear weather conditions are associated with higher traffic volume.",
	"Temporal variables have a stronger influence on traffic than weather variables.",
}

// Insights returns the fixed observations shown under the charts. They are not derived
// from the current selection.
func Insights() []string {
	out := make([]string, len(insights))
	copy(out, insights)
	return out
}
