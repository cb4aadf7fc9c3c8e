package types

// ScanClasses groups a release's headings into classes, in document order.
//
// Member headings belong to the most recently opened class; opening a new
// class seals the previous one. A class heading repeated later in the same
// release reopens the existing class rather than creating a second one.
// A member heading seen before any class heading makes the scan fail with a
// *HeadingError wrapping ErrOrphanSymbol. Headings outside the API grammar
// are skipped.
func ScanClasses(r *Release) ([]Class, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var (
		classes []*Class
		byName  = make(map[string]*Class)
		current *Class
	)
	for i, h := range r.Headings {
		c := ClassifyHeading(h)
		switch c.Kind {
		case "":
			continue
		case KindClass:
			if existing, ok := byName[c.Name]; ok {
				current = existing
				continue
			}
			current = &Class{Name: c.Name, Description: h.Description}
			byName[c.Name] = current
			classes = append(classes, current)
		case KindEvent, KindMethod, KindNamespace:
			if current == nil {
				return nil, &HeadingError{
					Release: r.Name,
					Index:   i,
					Heading: h.Raw(),
					Err:     ErrOrphanSymbol,
				}
			}
			current.add(c.Kind, Member{Name: c.Name, Args: c.Args, Description: h.Description})
		default:
			return nil, &HeadingError{Release: r.Name, Index: i, Heading: h.Raw(), Err: ErrUnknownKind}
		}
	}

	result := make([]Class, len(classes))
	for i, c := range classes {
		result[i] = *c
	}
	return result, nil
}
