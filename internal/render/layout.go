package render

// Paginate packs section heights into pages of usable height, in order. A
// section that no longer fits on the current page starts a new one; sections
// are never split. The result maps each page to the indexes of the sections
// it carries.
func Paginate(heights []float64, usable float64) ([][]int, error) {
	if len(heights) == 0 {
		return nil, nil
	}

	var (
		pages   [][]int
		current []int
		used    float64
	)
	for i, h := range heights {
		if h > usable {
			return nil, ErrSectionTooTall
		}
		if len(current) > 0 && used+h > usable {
			pages = append(pages, current)
			current = nil
			used = 0
		}
		current = append(current, i)
		used += h
	}
	pages = append(pages, current)
	return pages, nil
}
