package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	gc9307 "github.com/photonicat/periph.io-gc9307"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	RST_PIN = "GPIO122"
	DC_PIN  = "GPIO121"
	CS_PIN  = "GPIO13"
	BL_PIN  = "GPIO117"

	// Panel mounted landscape: logical canvas is 320x172.
	GS_LCD_WIDTH  = 320
	GS_LCD_HEIGHT = 172
	GS_Y_OFFSET   = 34

	GS_H_MARGIN      = 10
	GS_FOOTER_HEIGHT = 22

	GS_WORDMARK = "GLOWSIGN"

	FONT_TIER_THRESHOLD = 10

	MARQUEE_STEP = 4
	MARQUEE_TICK = 100 * time.Millisecond

	RENDER_TICK  = 50 * time.Millisecond
	LIFE_TICK    = 60 * time.Millisecond
	PERSIST_TICK = 1 * time.Second
	BATTERY_POLL = 5 * time.Second

	STATE_PATH = "state.json"
)

var GS_BLACK = color.RGBA{0, 0, 0, 255}

var (
	frameMutex   sync.RWMutex
	status       *SharedStatus
	screen       *Renderer
	animCommands = make(chan animCommand, 4)
	buttonEvents = make(chan buttonEvent, 16)
	gsNet        netInfo
)

//---------------- Font Config and Loader ----------------

// FontConfig holds parameters for a font.
type FontConfig struct {
	FontPath string
	FontSize float64
}

var fonts = map[string]FontConfig{
	"status_big":   {FontPath: "assets/fonts/Orbitron-ExtraBold.ttf", FontSize: 40},
	"status_small": {FontPath: "assets/fonts/Orbitron-ExtraBold.ttf", FontSize: 24},
	"corner":       {FontPath: "assets/fonts/Orbitron-Medium.ttf", FontSize: 13},
}

// getFontFace loads the font based on our mapping.
func getFontFace(fontName string) (font.Face, int, error) {
	cfg, ok := fonts[fontName]
	if !ok {
		return nil, 0, fmt.Errorf("font %s not found in mapping", fontName)
	}
	fontBytes, err := os.ReadFile(cfg.FontPath)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading font file: %v", err)
	}
	ttfFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, 0, fmt.Errorf("error parsing font: %v", err)
	}
	face, err := opentype.NewFace(ttfFont, &opentype.FaceOptions{
		Size:    cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, 0, err
	}

	metrics := face.Metrics()
	fontHeight := metrics.Ascent.Round() + metrics.Descent.Round()

	return face, fontHeight, nil
}

//---------------- Main ----------------

func main() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	spiPort, err := spireg.Open("SPI1.0")
	if err != nil {
		log.Fatal(err)
	}
	defer spiPort.Close()

	conn, err := spiPort.Connect(100000*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		log.Fatal(err)
	}

	display := gc9307.New(conn,
		gpioreg.ByName(RST_PIN),
		gpioreg.ByName(DC_PIN),
		gpioreg.ByName(CS_PIN),
		gpioreg.ByName(BL_PIN))
	display.Configure(gc9307.Config{
		Width:        GS_LCD_WIDTH,
		Height:       GS_LCD_HEIGHT,
		Rotation:     gc9307.ROTATION_90,
		RowOffset:    GS_Y_OFFSET,
		ColumnOffset: 0,
		FrameRate:    gc9307.FRAMERATE_60,
		VSyncLines:   gc9307.MAX_VSYNC_SCANLINES,
		UseCS:        false,
	})
	display.EnableBacklight(false)

	store := NewFileStore(STATE_PATH)
	persisted, err := store.Load()
	if err != nil {
		log.Printf("state load failed, using defaults: %v", err)
	}
	status = NewSharedStatus(persisted)

	faceBig, _, err := getFontFace("status_big")
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}
	faceSmall, _, err := getFontFace("status_small")
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}
	faceTiny, _, err := getFontFace("corner")
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}

	blit := &panelBlitter{dev: display}
	screen = NewRenderer(GS_LCD_WIDTH, GS_LCD_HEIGHT, blit, faceBig, faceSmall, faceTiny, deviceID())

	go httpServer()
	go watchButtons(buttonEvents)
	go newPersistDebouncer(status, store, PERSIST_TICK).run()
	go probeNetwork(&gsNet)

	wordmark := loadWordmark(GS_LCD_WIDTH, GS_LCD_HEIGHT, faceBig)

	// Boot reveal: scattered particles settle into the wordmark before the
	// status screen takes over.
	morphFromRandom(screen.frame, blit, wordmark, rng)

	renderLoop(blit, wordmark, rng)
}

// renderLoop owns the panel: buttons, marquee, automaton and morph all run
// here; the control context only mutates shared status and drops commands
// in the channel. Returns only when a long press requests sleep.
func renderLoop(blit Blitter, wordmark *image.RGBA, rng *rand.Rand) {
	machine := &buttonMachine{}
	life := newLifeEngine(GS_LCD_WIDTH, GS_LCD_HEIGHT, LIFE_CELL_SIZE, rng)
	animRunning := false

	var batt batteryInfo
	var lastBatt time.Time
	lastMarquee := time.Now()

	stopAnim := func() {
		animRunning = false
		machine.setAnimationLive(false)
		screen.Invalidate()
	}

	for {
		// Drain pending button edges first; sleep wins over everything.
	buttons:
		for {
			select {
			case ev := <-buttonEvents:
				switch machine.handle(ev) {
				case actionCycle:
					status.Mutate(func(st *StatusState) { st.cycleMode() })
				case actionToggleRotation:
					status.Mutate(func(st *StatusState) {
						if st.Rotation == Landscape {
							st.Rotation = LandscapeFlipped
						} else {
							st.Rotation = Landscape
						}
					})
				case actionStopAnimation:
					stopAnim()
				case actionSleep:
					requestSleep()
					return
				}
			default:
				break buttons
			}
		}

		select {
		case cmd := <-animCommands:
			switch cmd {
			case cmdStartAnimation:
				if !animRunning {
					animRunning = true
					machine.setAnimationLive(true)
					life.Reseed()
				}
			case cmdStopAnimation:
				if animRunning {
					stopAnim()
				}
			}
		default:
		}

		if animRunning {
			life.updateAlpha()
			frameMutex.Lock()
			life.RenderInto(screen.frame)
			frameMutex.Unlock()
			blit.Blit(0, 0, screen.frame)

			if life.AdvanceAndCheck() {
				morphFromCells(screen.frame, blit, life, wordmark, rng)
				life.Reseed()
			}
			time.Sleep(LIFE_TICK)
			continue
		}

		if time.Since(lastBatt) > BATTERY_POLL {
			batt = readBattery()
			lastBatt = time.Now()
		}

		st := status.Snapshot()
		redrew := screen.Redraw(st, batt, gsNet.CornerAddr())
		if !redrew && screen.marquee.Active() && time.Since(lastMarquee) >= MARQUEE_TICK {
			screen.ScrollTick(st)
			lastMarquee = time.Now()
		}
		time.Sleep(RENDER_TICK)
	}
}
