package ppu

// affineTiles gives the map side length in tiles for BGxCNT's screen size
// field under affine backgrounds (always square, 8bpp-only).
var affineTiles = [4]int{16, 32, 64, 128}

// renderAffineBG samples an affine (rotated/scaled) tile background for
// scanline y. affIdx is 0 for BG2, 1 for BG3.
func (p *PPU) renderAffineBG(bg, affIdx, y int, line *[ScreenWidth]pixel) {
	cnt := p.bgcnt[bg]
	charBase := int(cnt>>2&0x3) * 0x4000
	screenBase := int(cnt>>8&0x1F) * 0x800
	sizeTiles := affineTiles[cnt>>14&0x3]
	sizePx := sizeTiles * 8
	wrap := cnt&0x2000 != 0

	a := &p.bgAffine[affIdx]
	baseX, baseY := a.curX, a.curY

	for x := 0; x < ScreenWidth; x++ {
		texX := int32(baseX+int32(x)*int32(a.pa)) >> 8
		texY := int32(baseY+int32(x)*int32(a.pc)) >> 8

		if wrap {
			texX = wrapMod(texX, int32(sizePx))
			texY = wrapMod(texY, int32(sizePx))
		} else if texX < 0 || texY < 0 || int(texX) >= sizePx || int(texY) >= sizePx {
			line[x] = pixel{}
			continue
		}

		tileCol, tileRow := int(texX)/8, int(texY)/8
		pixCol, pixRow := int(texX)%8, int(texY)%8
		tileNum := int(readByte(p.vram, screenBase+tileRow*sizeTiles+tileCol))
		tileAddr := charBase + tileNum*64 + pixRow*8 + pixCol
		idx := readByte(p.vram, tileAddr)
		line[x] = p.lookupBGColor(idx, 0, true)
	}
}

func wrapMod(v, m int32) int32 {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}

// renderBitmapLine handles modes 3-5, sampled through BG2's affine unit
// exactly as hardware does: software is expected to program BG2PA/PD to
// 0x100 and BG2PB/PC to 0 for an unscaled bitmap, the same as on real
// hardware.
func (p *PPU) renderBitmapLine(mode, y int, line *[ScreenWidth]pixel) {
	a := &p.bgAffine[0]
	frame := 0
	if p.dispcnt&0x0010 != 0 {
		frame = 1
	}

	var width, height, frameBytes int
	switch mode {
	case 3:
		width, height = ScreenWidth, ScreenHeight
	case 4:
		width, height = ScreenWidth, ScreenHeight
		frameBytes = 0xA000
	case 5:
		width, height = 160, 128
		frameBytes = 0xA000
	}

	for x := 0; x < ScreenWidth; x++ {
		texX := int(int32(a.curX+int32(x)*int32(a.pa)) >> 8)
		texY := int(int32(a.curY+int32(x)*int32(a.pc)) >> 8)
		if texX < 0 || texY < 0 || texX >= width || texY >= height {
			line[x] = pixel{}
			continue
		}
		switch mode {
		case 3, 5:
			off := frame*frameBytes + (texY*width+texX)*2
			line[x] = pixel{color: readColor15(p.vram, off), opaque: true}
		case 4:
			off := frame*frameBytes + texY*width + texX
			idx := readByte(p.vram, off)
			line[x] = p.lookupBGColor(idx, 0, true)
		}
	}
}
