package processor

import "fmt"

func textPrompt(adText string) string {
	return fmt.Sprintf(`Analyze the following Facebook ad copy:
"""%s"""

Provide a comprehensive summary of the ad's angle, audience and offer.

Return ONLY a JSON object with keys:
summary (string)
`, adText)
}

func imagePrompt(adText string) string {
	return fmt.Sprintf(`Analyze this ad image and the accompanying ad copy:
"""%s"""

1. Provide a summary of the ad's angle and offer.
2. Describe the image in detail: subjects, composition, colors, on-image text.

Return ONLY a JSON object with keys:
summary (string),
image_description (string)
`, adText)
}

func videoPrompt(adText string) string {
	return fmt.Sprintf(`Analyze this ad video and the accompanying ad copy:
"""%s"""

1. Provide a summary of the ad's angle and offer.
2. Describe the video content, scenes, visual style and implied audio.

Return ONLY a JSON object with keys:
summary (string),
video_description (string)
`, adText)
}

func videoPreviewPrompt(adText string) string {
	return fmt.Sprintf(`This image is the preview frame of a video ad. The ad copy is:
"""%s"""

1. Provide a summary of the ad's angle and offer.
2. Describe what the video most likely shows, based on the preview frame and the copy.

Return ONLY a JSON object with keys:
summary (string),
video_description (string)
`, adText)
}

func videoTextOnlyPrompt(adText string) string {
	return fmt.Sprintf(`The video of this ad could not be retrieved. The ad copy is:
"""%s"""

1. Provide a summary of the ad's angle and offer.
2. Infer from the copy what the video most likely shows.

Return ONLY a JSON object with keys:
summary (string),
video_description (string)
`, adText)
}
