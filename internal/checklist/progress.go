package checklist

// Progress returns round(100 * completed / total), halves rounding up, and 0
// when there are no tasks.
func Progress(total, completed int) int {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return (200*completed + total) / (2 * total)
}
