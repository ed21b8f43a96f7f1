package soundio

import "strings"

// MaxChannels is the largest channel count a layout or stream may carry.
const MaxChannels = 24

// ChannelID identifies the speaker position or role of one channel.
type ChannelID int

const (
	ChannelInvalid ChannelID = iota

	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLfe
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
	ChannelTopCenter
	ChannelTopFrontLeft
	ChannelTopFrontCenter
	ChannelTopFrontRight
	ChannelTopBackLeft
	ChannelTopBackCenter
	ChannelTopBackRight

	ChannelBackLeftCenter
	ChannelBackRightCenter
	ChannelFrontLeftWide
	ChannelFrontRightWide
	ChannelFrontLeftHigh
	ChannelFrontCenterHigh
	ChannelFrontRightHigh
	ChannelTopFrontLeftCenter
	ChannelTopFrontRightCenter
	ChannelTopSideLeft
	ChannelTopSideRight
	ChannelLeftLfe
	ChannelRightLfe
	ChannelLfe2
	ChannelBottomCenter
	ChannelBottomLeftCenter
	ChannelBottomRightCenter

	// Mid/side recording
	ChannelMsMid
	ChannelMsSide

	// First order ambisonic channels
	ChannelAmbisonicW
	ChannelAmbisonicX
	ChannelAmbisonicY
	ChannelAmbisonicZ

	// X-Y Recording
	ChannelXyX
	ChannelXyY

	ChannelHeadphonesLeft
	ChannelHeadphonesRight
	ChannelClickTrack
	ChannelForeignLanguage
	ChannelHearingImpaired
	ChannelNarration
	ChannelHaptic
	ChannelDialogCentricMix

	ChannelAux
	ChannelAux0
	ChannelAux1
	ChannelAux2
	ChannelAux3
	ChannelAux4
	ChannelAux5
	ChannelAux6
	ChannelAux7
	ChannelAux8
	ChannelAux9
	ChannelAux10
	ChannelAux11
	ChannelAux12
	ChannelAux13
	ChannelAux14
	ChannelAux15

	channelIDCount
)

// channelNames holds the canonical name first, then accepted aliases.
var channelNames = [channelIDCount][]string{
	ChannelInvalid:             {"(Invalid Channel)"},
	ChannelFrontLeft:           {"Front Left", "FL", "front-left"},
	ChannelFrontRight:          {"Front Right", "FR", "front-right"},
	ChannelFrontCenter:         {"Front Center", "FC", "front-center"},
	ChannelLfe:                 {"LFE", "low-frequency", "subwoofer"},
	ChannelBackLeft:            {"Back Left", "BL", "rear-left"},
	ChannelBackRight:           {"Back Right", "BR", "rear-right"},
	ChannelFrontLeftCenter:     {"Front Left Center", "FLC", "front-left-of-center"},
	ChannelFrontRightCenter:    {"Front Right Center", "FRC", "front-right-of-center"},
	ChannelBackCenter:          {"Back Center", "BC", "rear-center"},
	ChannelSideLeft:            {"Side Left", "SL", "side-left"},
	ChannelSideRight:           {"Side Right", "SR", "side-right"},
	ChannelTopCenter:           {"Top Center", "TC", "top-center"},
	ChannelTopFrontLeft:        {"Top Front Left", "TFL", "top-front-left"},
	ChannelTopFrontCenter:      {"Top Front Center", "TFC", "top-front-center"},
	ChannelTopFrontRight:       {"Top Front Right", "TFR", "top-front-right"},
	ChannelTopBackLeft:         {"Top Back Left", "TBL", "top-rear-left"},
	ChannelTopBackCenter:       {"Top Back Center", "TBC", "top-rear-center"},
	ChannelTopBackRight:        {"Top Back Right", "TBR", "top-rear-right"},
	ChannelBackLeftCenter:      {"Back Left Center"},
	ChannelBackRightCenter:     {"Back Right Center"},
	ChannelFrontLeftWide:       {"Front Left Wide"},
	ChannelFrontRightWide:      {"Front Right Wide"},
	ChannelFrontLeftHigh:       {"Front Left High"},
	ChannelFrontCenterHigh:     {"Front Center High"},
	ChannelFrontRightHigh:      {"Front Right High"},
	ChannelTopFrontLeftCenter:  {"Top Front Left Center"},
	ChannelTopFrontRightCenter: {"Top Front Right Center"},
	ChannelTopSideLeft:         {"Top Side Left"},
	ChannelTopSideRight:        {"Top Side Right"},
	ChannelLeftLfe:             {"Left LFE"},
	ChannelRightLfe:            {"Right LFE"},
	ChannelLfe2:                {"LFE 2"},
	ChannelBottomCenter:        {"Bottom Center"},
	ChannelBottomLeftCenter:    {"Bottom Left Center"},
	ChannelBottomRightCenter:   {"Bottom Right Center"},
	ChannelMsMid:               {"Mid/Side Mid"},
	ChannelMsSide:              {"Mid/Side Side"},
	ChannelAmbisonicW:          {"Ambisonic W"},
	ChannelAmbisonicX:          {"Ambisonic X"},
	ChannelAmbisonicY:          {"Ambisonic Y"},
	ChannelAmbisonicZ:          {"Ambisonic Z"},
	ChannelXyX:                 {"X-Y X"},
	ChannelXyY:                 {"X-Y Y"},
	ChannelHeadphonesLeft:      {"Headphones Left"},
	ChannelHeadphonesRight:     {"Headphones Right"},
	ChannelClickTrack:          {"Click Track"},
	ChannelForeignLanguage:     {"Foreign Language"},
	ChannelHearingImpaired:     {"Hearing Impaired"},
	ChannelNarration:           {"Narration"},
	ChannelHaptic:              {"Haptic"},
	ChannelDialogCentricMix:    {"Dialog Centric Mix"},
	ChannelAux:                 {"Aux"},
	ChannelAux0:                {"Aux 0"},
	ChannelAux1:                {"Aux 1"},
	ChannelAux2:                {"Aux 2"},
	ChannelAux3:                {"Aux 3"},
	ChannelAux4:                {"Aux 4"},
	ChannelAux5:                {"Aux 5"},
	ChannelAux6:                {"Aux 6"},
	ChannelAux7:                {"Aux 7"},
	ChannelAux8:                {"Aux 8"},
	ChannelAux9:                {"Aux 9"},
	ChannelAux10:               {"Aux 10"},
	ChannelAux11:               {"Aux 11"},
	ChannelAux12:               {"Aux 12"},
	ChannelAux13:               {"Aux 13"},
	ChannelAux14:               {"Aux 14"},
	ChannelAux15:               {"Aux 15"},
}

// String returns the canonical channel name.
func (id ChannelID) String() string {
	if id < 0 || id >= channelIDCount {
		return channelNames[ChannelInvalid][0]
	}
	return channelNames[id][0]
}

// ParseChannelID matches a canonical name or alias, ignoring case.
// Unknown names yield ChannelInvalid.
func ParseChannelID(name string) ChannelID {
	name = strings.TrimSpace(name)
	for id := ChannelFrontLeft; id < channelIDCount; id++ {
		for _, alias := range channelNames[id] {
			if strings.EqualFold(alias, name) {
				return id
			}
		}
	}
	return ChannelInvalid
}
