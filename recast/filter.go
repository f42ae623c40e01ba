package recast

// FilterLowHangingWalkableObstacles marks non walkable spans as walkable when
// their top is within walkableClimb of a walkable span directly below.
func FilterLowHangingWalkableObstacles(walkableClimb int, hf *Heightfield) {
	for _, col := range hf.spans {
		prevWalkable := false
		prevArea := AreaNull
		var ps *Span
		for s := col; s != nil; ps, s = s, s.next {
			walkable := s.area != AreaNull
			if !walkable && prevWalkable && absInt(s.smax-ps.smax) <= walkableClimb {
				s.area = prevArea
			}
			// Copy the original flag so it cannot propagate past several obstacles.
			prevWalkable = walkable
			prevArea = s.area
		}
	}
}

// FilterLedgeSpans removes spans next to a drop deeper than walkableClimb, and
// spans on slopes steeper than walkableClimb between their neighbours.
func FilterLedgeSpans(walkableHeight, walkableClimb int, hf *Heightfield) {
	w, h := hf.width, hf.height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for s := hf.spans[x+y*w]; s != nil; s = s.next {
				if s.area == AreaNull {
					continue
				}
				bot := s.smax
				top := maxHeight
				if s.next != nil {
					top = s.next.smin
				}
				minh := maxHeight
				asmin, asmax := s.smax, s.smax
				for dir := 0; dir < 4; dir++ {
					dx := x + dirOffX(dir)
					dy := y + dirOffY(dir)
					if dx < 0 || dy < 0 || dx >= w || dy >= h {
						minh = min(minh, -walkableClimb-bot)
						continue
					}
					// From minus infinity to the first span.
					ns := hf.spans[dx+dy*w]
					nbot := -walkableClimb
					ntop := maxHeight
					if ns != nil {
						ntop = ns.smin
					}
					if min(top, ntop)-max(bot, nbot) > walkableHeight {
						minh = min(minh, nbot-bot)
					}
					for ; ns != nil; ns = ns.next {
						nbot = ns.smax
						ntop = maxHeight
						if ns.next != nil {
							ntop = ns.next.smin
						}
						if min(top, ntop)-max(bot, nbot) > walkableHeight {
							minh = min(minh, nbot-bot)
							if absInt(nbot-bot) <= walkableClimb {
								asmin = min(asmin, nbot)
								asmax = max(asmax, nbot)
							}
						}
					}
				}
				if minh < -walkableClimb {
					s.area = AreaNull
				} else if asmax-asmin > walkableClimb {
					s.area = AreaNull
				}
			}
		}
	}
}

// FilterWalkableLowHeightSpans removes spans without walkableHeight clearance above.
func FilterWalkableLowHeightSpans(walkableHeight int, hf *Heightfield) {
	for _, col := range hf.spans {
		for s := col; s != nil; s = s.next {
			top := maxHeight
			if s.next != nil {
				top = s.next.smin
			}
			if top-s.smax <= walkableHeight {
				s.area = AreaNull
			}
		}
	}
}
