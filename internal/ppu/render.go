package ppu

const backdropPriority = 4 // lower than any real BG/OBJ priority, so it always loses

// renderLine composes one visible scanline into p.Frame, following the
// mode/layer/window/blend rules.
func (p *PPU) renderLine(y int) {
	mode := p.dispcnt & 0x7
	var bgLines [4][ScreenWidth]pixel
	var active [4]bool

	switch mode {
	case 0:
		for bg := 0; bg < 4; bg++ {
			if p.bgEnabled(bg) {
				p.renderTextBG(bg, y, &bgLines[bg])
				active[bg] = true
			}
		}
	case 1:
		for bg := 0; bg < 2; bg++ {
			if p.bgEnabled(bg) {
				p.renderTextBG(bg, y, &bgLines[bg])
				active[bg] = true
			}
		}
		if p.bgEnabled(2) {
			p.renderAffineBG(2, 0, y, &bgLines[2])
			active[2] = true
		}
	case 2:
		if p.bgEnabled(2) {
			p.renderAffineBG(2, 0, y, &bgLines[2])
			active[2] = true
		}
		if p.bgEnabled(3) {
			p.renderAffineBG(3, 1, y, &bgLines[3])
			active[3] = true
		}
	case 3, 4, 5:
		if p.bgEnabled(2) {
			p.renderBitmapLine(int(mode), y, &bgLines[2])
			active[2] = true
		}
	}

	var sprites [ScreenWidth]spritePixel
	objEnabled := p.dispcnt&0x1000 != 0
	if objEnabled {
		p.renderSprites(y, &sprites)
	}

	winEnabled := p.dispcnt&0xE000 != 0

	for x := 0; x < ScreenWidth; x++ {
		layers := p.windowLayers(x, y, winEnabled, sprites[x].window)

		topColor := readColor15(p.palette, 0) // backdrop = palette entry 0
		topPriority := uint8(backdropPriority)
		topIsSprite := false
		secondColor := topColor
		secondPriority := topPriority
		haveSecond := false

		consider := func(c pixel, isSprite bool) {
			if !c.opaque {
				return
			}
			if c.priority < topPriority || (c.priority == topPriority && isSprite && !topIsSprite) {
				secondColor, secondPriority, haveSecond = topColor, topPriority, true
				topColor, topPriority, topIsSprite = c.color, c.priority, isSprite
			} else if !haveSecond || c.priority < secondPriority {
				secondColor, secondPriority, haveSecond = c.color, c.priority, true
			}
		}

		if layers.sprites && sprites[x].opaque {
			consider(sprites[x].pixel, true)
		}
		for bg := 0; bg < 4; bg++ {
			if active[bg] && layers.bg[bg] {
				consider(bgLines[bg][x], false)
			}
		}

		p.Frame[y*ScreenWidth+x] = p.applyBlend(topColor, topPriority, topIsSprite, secondColor, sprites[x].semiTransparent, layers.effects)
	}
}

func (p *PPU) bgEnabled(bg int) bool { return p.dispcnt&(1<<(8+bg)) != 0 }

type visibleLayers struct {
	bg      [4]bool
	sprites bool
	effects bool
}

// windowLayers resolves WIN0/WIN1/OBJ-window/WINOUT enable masks for one
// pixel. With no windows enabled every layer is visible unconditionally.
func (p *PPU) windowLayers(x, y int, winEnabled, objWindow bool) visibleLayers {
	if !winEnabled {
		var l visibleLayers
		for i := range l.bg {
			l.bg[i] = true
		}
		l.sprites = true
		l.effects = true
		return l
	}

	win0 := p.dispcnt&0x2000 != 0 && p.inWindow(x, y, p.win0h, p.win0v)
	win1 := p.dispcnt&0x4000 != 0 && p.inWindow(x, y, p.win1h, p.win1v)

	var mask uint16
	switch {
	case win0:
		mask = p.winin & 0x3F
	case win1:
		mask = p.winin >> 8 & 0x3F
	case objWindow:
		mask = p.winout >> 8 & 0x3F
	default:
		mask = p.winout & 0x3F
	}

	var l visibleLayers
	for i := 0; i < 4; i++ {
		l.bg[i] = mask&(1<<i) != 0
	}
	l.sprites = mask&0x10 != 0
	l.effects = mask&0x20 != 0
	return l
}

func (p *PPU) inWindow(x, y int, h, v uint16) bool {
	x1, x2 := int(h>>8), int(h&0xFF)
	y1, y2 := int(v>>8), int(v&0xFF)
	if x2 > ScreenWidth || x2 < x1 {
		x2 = ScreenWidth
	}
	if y2 > ScreenHeight || y2 < y1 {
		y2 = ScreenHeight
	}
	return x >= x1 && x < x2 && y >= y1 && y < y2
}

// applyBlend applies BLDCNT's alpha/brighten/darken color effect between
// the two frontmost layers at this pixel, when effects are enabled for it.
func (p *PPU) applyBlend(top uint16, topPriority uint8, topIsSprite bool, second uint16, semiTransparent bool, effectsOn bool) uint16 {
	effect := p.bldcnt >> 6 & 0x3
	if semiTransparent && topIsSprite {
		effect = 1 // forced alpha blend for semi-transparent OBJ, regardless of BLDCNT mode
	}
	if !effectsOn || effect == 0 {
		return top
	}
	switch effect {
	case 1:
		eva := p.bldalpha & 0x1F
		evb := p.bldalpha >> 8 & 0x1F
		return blendAlpha(top, second, eva, evb)
	case 2:
		return blendBrightness(top, p.bldy&0x1F, true)
	case 3:
		return blendBrightness(top, p.bldy&0x1F, false)
	}
	return top
}
