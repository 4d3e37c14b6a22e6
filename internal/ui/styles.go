package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/prompt-mover/internal/notify"
)

// Design System Colors - Adaptive based on terminal background
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorAccent    lipgloss.Color

	ColorSuccess lipgloss.Color
	ColorWarning lipgloss.Color
	ColorError   lipgloss.Color
	ColorInfo    lipgloss.Color

	ColorText      lipgloss.Color
	ColorTextMuted lipgloss.Color
	ColorTextDim   lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorSurface   lipgloss.Color
)

// Component Styles, built by initializeColors
var (
	StyleTitle       lipgloss.Style
	StyleSubtitle    lipgloss.Style
	StyleText        lipgloss.Style
	StyleTextMuted   lipgloss.Style
	StyleTextDim     lipgloss.Style
	StyleFocused     lipgloss.Style
	StyleUnselected  lipgloss.Style
	StyleModeCopy    lipgloss.Style
	StyleModeMove    lipgloss.Style
	StyleSuccess     lipgloss.Style
	StyleWarning     lipgloss.Style
	StyleError       lipgloss.Style
	StyleInfo        lipgloss.Style
	StyleModal       lipgloss.Style
	StylePreview     lipgloss.Style
	StyleLoading     lipgloss.Style
	StyleMetadata    lipgloss.Style
	StyleBreadcrumbs lipgloss.Style
)

func init() {
	setDarkThemeColors()
	buildStyles()
}

// initializeColors sets up adaptive colors based on terminal background
func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
	case "dark":
		setDarkThemeColors()
	default:
		if lipgloss.HasDarkBackground() {
			setDarkThemeColors()
		} else {
			setLightThemeColors()
		}
	}
	buildStyles()
}

func setDarkThemeColors() {
	ColorPrimary = lipgloss.Color("205")  // Bright magenta/pink
	ColorSecondary = lipgloss.Color("33") // Bright cyan/blue
	ColorAccent = lipgloss.Color("214")   // Bright orange/yellow
	ColorSuccess = lipgloss.Color("10")
	ColorWarning = lipgloss.Color("11")
	ColorError = lipgloss.Color("9")
	ColorInfo = lipgloss.Color("12")
	ColorText = lipgloss.Color("252")
	ColorTextMuted = lipgloss.Color("244")
	ColorTextDim = lipgloss.Color("240")
	ColorBorder = lipgloss.Color("238")
	ColorSurface = lipgloss.Color("236")
}

func setLightThemeColors() {
	ColorPrimary = lipgloss.Color("125") // Darker magenta for contrast
	ColorSecondary = lipgloss.Color("24")
	ColorAccent = lipgloss.Color("130")
	ColorSuccess = lipgloss.Color("22")
	ColorWarning = lipgloss.Color("136")
	ColorError = lipgloss.Color("160")
	ColorInfo = lipgloss.Color("24")
	ColorText = lipgloss.Color("232")
	ColorTextMuted = lipgloss.Color("240")
	ColorTextDim = lipgloss.Color("244")
	ColorBorder = lipgloss.Color("248")
	ColorSurface = lipgloss.Color("254")
}

func buildStyles() {
	StyleTitle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Padding(0, 1)
	StyleSubtitle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Padding(0, 1)
	StyleText = lipgloss.NewStyle().Foreground(ColorText)
	StyleTextMuted = lipgloss.NewStyle().Foreground(ColorTextMuted)
	StyleTextDim = lipgloss.NewStyle().Foreground(ColorTextDim)

	StyleFocused = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")). // Pure white
		Background(ColorSecondary).
		Bold(true).
		Padding(0, 1)
	StyleUnselected = lipgloss.NewStyle().Foreground(ColorTextMuted).Padding(0, 1)

	StyleModeCopy = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(ColorSecondary).Bold(true).Padding(0, 1)
	StyleModeMove = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(ColorAccent).Bold(true).Padding(0, 1)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Padding(0, 1)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true).Padding(0, 1)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true).Padding(0, 1)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true).Padding(0, 1)

	StyleModal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(0, 1)
	StylePreview = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	StyleLoading = lipgloss.NewStyle().Foreground(ColorInfo).Italic(true).Padding(0, 1)
	StyleMetadata = lipgloss.NewStyle().Foreground(ColorTextDim).Padding(0, 1)
	StyleBreadcrumbs = lipgloss.NewStyle().Foreground(ColorTextMuted).Padding(0, 1)
}

// CreateHeader renders the title with the current mode badge
func CreateHeader(titleText, mode string) string {
	badge := StyleModeCopy.Render(strings.ToUpper(mode))
	if mode == "move" {
		badge = StyleModeMove.Render(strings.ToUpper(mode))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, StyleTitle.Render(titleText), " ", badge)
}

func CreateMetadata(text string) string {
	return StyleMetadata.Render(text)
}

// CreateGuaranteedHelp renders help text truncated to the terminal width
func CreateGuaranteedHelp(helpText string, width int) string {
	if width > 5 && len(helpText) > width-2 {
		helpText = helpText[:width-5] + "..."
	}
	return StyleTextDim.Padding(0, 1).Render(helpText)
}

// CreateStatus styles a notification by severity
func CreateStatus(text string, severity notify.Severity) string {
	switch severity {
	case notify.Success:
		return StyleSuccess.Render("✓ " + text)
	case notify.Warning:
		return StyleWarning.Render("⚠ " + text)
	case notify.Error:
		return StyleError.Render("✗ " + text)
	case notify.Info:
		return StyleInfo.Render(text)
	default:
		return StyleText.Render(text)
	}
}

// Modal centering helper
func CenterModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// Add consistent padding to main content (left only, no top padding)
func AddMainPadding(content string) string {
	return lipgloss.NewStyle().PaddingLeft(2).Render(content)
}
