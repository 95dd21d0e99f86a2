package ppu

// textTileSize gives the map size in tiles (w,h) for BGxCNT's 2-bit screen
// size field under regular (non-affine) text backgrounds.
var textTileSize = [4][2]int{{32, 32}, {64, 32}, {32, 64}, {64, 64}}

// renderTextBG fills line[] with a palette color (or transparency) for
// background index bg at scanline y, following the text-mode tile map
// layout shared by BG0-3 in modes 0-1.
func (p *PPU) renderTextBG(bg, y int, line *[ScreenWidth]pixel) {
	cnt := p.bgcnt[bg]
	charBase := int(cnt>>2&0x3) * 0x4000
	screenBase := int(cnt>>8&0x1F) * 0x800
	is8bpp := cnt&0x80 != 0
	sizeIdx := cnt >> 14 & 0x3
	mapW, mapH := textTileSize[sizeIdx][0], textTileSize[sizeIdx][1]

	scrolledY := (y + int(p.bgvofs[bg])) % (mapH * 8)
	tileRow := scrolledY / 8
	pixRow := scrolledY % 8

	for x := 0; x < ScreenWidth; x++ {
		scrolledX := (x + int(p.bghofs[bg])) % (mapW * 8)
		tileCol := scrolledX / 8
		pixCol := scrolledX % 8

		blockX, blockY := tileCol/32, tileRow/32
		var blockIdx int
		switch {
		case mapW == 32:
			blockIdx = 0
		case mapH == 32: // 64x32
			blockIdx = blockX
		default: // 64x64
			blockIdx = blockY*2 + blockX
		}
		localCol, localRow := tileCol%32, tileRow%32

		entryAddr := screenBase + blockIdx*0x800 + (localRow*32+localCol)*2
		entry := readColor15(p.vram, entryAddr)
		tileNum := int(entry & 0x3FF)
		hflip := entry&0x400 != 0
		vflip := entry&0x800 != 0
		palette := int(entry >> 12 & 0xF)

		sx, sy := pixCol, pixRow
		if hflip {
			sx = 7 - sx
		}
		if vflip {
			sy = 7 - sy
		}

		var idx uint8
		if is8bpp {
			tileAddr := charBase + tileNum*64 + sy*8 + sx
			idx = readByte(p.vram, tileAddr)
		} else {
			tileAddr := charBase + tileNum*32 + sy*4 + sx/2
			b := readByte(p.vram, tileAddr)
			if sx%2 == 0 {
				idx = b & 0xF
			} else {
				idx = b >> 4
			}
		}

		line[x] = p.lookupBGColor(idx, palette, is8bpp)
	}
}

func readByte(mem []byte, addr int) uint8 {
	if addr < 0 || addr >= len(mem) {
		return 0
	}
	return mem[addr]
}

type pixel struct {
	color    uint16
	opaque   bool
	priority uint8
}

func (p *PPU) lookupBGColor(idx uint8, palette int, is8bpp bool) pixel {
	if idx == 0 {
		return pixel{}
	}
	var offset int
	if is8bpp {
		offset = int(idx) * 2
	} else {
		offset = (palette*16 + int(idx)) * 2
	}
	return pixel{color: readColor15(p.palette, offset), opaque: true}
}
